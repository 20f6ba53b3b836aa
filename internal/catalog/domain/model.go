package domain

// Product is a catalog item. Image holds the relative URL of the stored
// file (/uploads/<generated-name>), nil when the product has no image.
type Product struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"type:text;not null"`
	Description string  `json:"description" gorm:"type:text;not null;default:''"`
	Price       float64 `json:"price" gorm:"not null"`
	Image       *string `json:"image" gorm:"type:text"`
}

func (Product) TableName() string { return "products" }
