package ledgerd

import "palmpay/ledger"

// catalog is the static store inventory served at /products.
var catalog = []ledger.Product{
	{
		ID:          "1",
		Name:        "Premium Cotton T-Shirt",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=400&h=400&fit=crop",
		Description: "High-quality cotton t-shirt with comfortable fit and modern design",
		Category:    "T-Shirts",
	},
	{
		ID:          "2",
		Name:        "Designer Jeans",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1542272604-787c3835535d?w=400&h=400&fit=crop",
		Description: "Stylish designer jeans with perfect fit and premium denim material",
		Category:    "Jeans",
	},
	{
		ID:          "3",
		Name:        "Casual Hoodie",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=400&h=400&fit=crop",
		Description: "Comfortable hoodie perfect for casual wear and cool weather",
		Category:    "Hoodies",
	},
	{
		ID:          "4",
		Name:        "Summer Dress",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1595777457583-95e059d581b8?w=400&h=400&fit=crop",
		Description: "Elegant summer dress with floral patterns and lightweight fabric",
		Category:    "Dresses",
	},
	{
		ID:          "5",
		Name:        "Formal Shirt",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1596755094514-f87e34085b2c?w=400&h=400&fit=crop",
		Description: "Professional formal shirt perfect for business and formal occasions",
		Category:    "Shirts",
	},
	{
		ID:          "6",
		Name:        "Sports Jacket",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1551028719-00167b16eac5?w=400&h=400&fit=crop",
		Description: "Athletic sports jacket with moisture-wicking technology",
		Category:    "Jackets",
	},
	{
		ID:          "7",
		Name:        "Vintage Sweater",
		Price:       1,
		Image:       "https://images.unsplash.com/photo-1576566588028-4147f3842f27?w=400&h=400&fit=crop",
		Description: "Cozy vintage-style sweater with classic patterns and warm material",
		Category:    "Sweaters",
	},
}
