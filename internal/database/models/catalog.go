package models

// Category is a static lookup row (house, apartment, ...)
type Category struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:30;not null" json:"nombre"`
}

// TableName overrides the table name
func (Category) TableName() string {
	return "categories"
}

// Price is a static price tier lookup row
type Price struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:30;not null" json:"nombre"`
}

// TableName overrides the table name
func (Price) TableName() string {
	return "prices"
}
