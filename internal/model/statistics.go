// Package model はドメインモデルを定義する。
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StatisticsRecord は店舗の1日分の統計を表す。
// (StoreID, Date) の組はユニークであり、同一キーへの書き込みはUPSERTとなる。
// Dateは時刻を持たないISO形式（YYYY-MM-DD）の文字列として扱う。
type StatisticsRecord struct {
	ID      string
	StoreID string
	Date    string

	Inflow        int
	InflowChange  *int
	Orders        int
	OrdersChange  *int
	Calls         int
	CallsChange   *int
	Reviews       int
	ReviewsChange *int

	// InflowChannels とInflowKeywords は可変形状のコレクション。
	// 過去データはJSON文字列として保存されている場合があるため、
	// JSONCollectionが境界で一度だけ正規化する。
	InflowChannels JSONCollection
	InflowKeywords JSONCollection

	CreatedAt time.Time
	UpdatedAt time.Time
}

// JSONCollection は「JSONエンコード済み文字列」と「構造化済み配列」の
// どちらの表現でも受け取れるコレクション型。
// 入力境界（JSONデコード・DBスキャン）で一度だけ正規化し、
// 以降は常に構造化された値として扱う。
type JSONCollection []map[string]any

// UnmarshalJSON はJSON配列と、JSON配列を内包する文字列の両方を受け付ける。
// 空文字列・nullは空コレクションとして正規化する。
func (c *JSONCollection) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		// 文字列表現: 内側のJSONをもう一段デコードする
		if s == "" {
			*c = JSONCollection{}
			return nil
		}
		var items []map[string]any
		if err := json.Unmarshal([]byte(s), &items); err != nil {
			return fmt.Errorf("コレクション文字列のパースに失敗しました: %w", err)
		}
		*c = items
		return nil
	}

	var items []map[string]any
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("コレクションのパースに失敗しました: %w", err)
	}
	if items == nil {
		items = []map[string]any{}
	}
	*c = items
	return nil
}

// MarshalJSON は常に構造化された配列として出力する。
// nilコレクションは空配列として出力する。
func (c JSONCollection) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]map[string]any(c))
}

// Value はDB保存用にJSONテキストへ変換する。
func (c JSONCollection) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan はDBから読み出した値を正規化する。
// JSONB由来の[]byte、TEXT由来のstring、二重エンコードされたJSON文字列のいずれも受け付ける。
func (c *JSONCollection) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = JSONCollection{}
		return nil
	case []byte:
		return c.UnmarshalJSON(v)
	case string:
		return c.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("コレクションに変換できない型です: %T", src)
	}
}
