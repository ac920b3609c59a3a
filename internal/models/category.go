package models

import (
	"strings"

	"gorm.io/gorm"
)

// Category groups transactions, e.g. "Groceries" or "Salary".
type Category struct {
	DefaultModel
	UserID string `gorm:"index;uniqueIndex:category_user_id_name"`
	Name   string `gorm:"uniqueIndex:category_user_id_name"`
	Icon   string
	Color  string
	Note   string
}

// BeforeSave trims whitespace from all strings.
func (c *Category) BeforeSave(_ *gorm.DB) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Icon = strings.TrimSpace(c.Icon)
	c.Color = strings.TrimSpace(c.Color)
	c.Note = strings.TrimSpace(c.Note)

	return nil
}
