package models

// ProductCategory groups products in the shop catalogue.
type ProductCategory struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Slug         string `json:"slug"`
	ProductCount int    `json:"product_count"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// Product is a shop item. Price is the API's decimal string.
type Product struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	StockQuantity int    `json:"stock_quantity"`
	SKU           string `json:"sku"`
	ImageURL      string `json:"image_url"`
	IsActive      bool   `json:"is_active"`
	IsFeatured    bool   `json:"is_featured"`
	CategoryID    *uint  `json:"category_id"`
	CategoryName  string `json:"category_name,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// InStock reports whether the product can currently be ordered.
func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
