package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ClaimedID — идентификатор пользователя или муниципалитета, переданный вызывающей стороной
// параметром запроса. Он НЕ проверяется по токену: это заявленная, а не подтверждённая личность.
type ClaimedID string

// Location — координаты и необязательный адрес.
type Location struct {
	Lat     float64 `gorm:"not null" json:"lat"`
	Lon     float64 `gorm:"not null" json:"lon"`
	Address *string `gorm:"type:text" json:"address"`
}

// StringList хранится как text[] в Postgres и как текстовый литерал массива в остальных диалектах.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *StringList) Scan(src any) error {
	var a pq.StringArray
	if err := a.Scan(src); err != nil {
		return err
	}
	*l = StringList(a)
	return nil
}

// GormDataType нужен парсеру схемы: без него срез строк принимается за связь.
func (StringList) GormDataType() string {
	return "text"
}

func (StringList) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

// NullableString отличает отсутствующее поле JSON от явного null.
type NullableString struct {
	Set   bool
	Value *string
}

// SetString возвращает заданное непустым значением поле.
func SetString(v string) NullableString {
	return NullableString{Set: true, Value: &v}
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}
