package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/yarnshop/internal/model"
)

func sampleCatalog() []model.Product {
	return []model.Product{
		{
			Name:        "Merino Soft DK",
			Description: "Superwash merino, 100g / 225m.",
			Price:       decimal.RequireFromString("9.99"),
			Stock:       40,
			Category:    "wool",
			Variants:    []string{"cream", "sage", "rust"},
			Active:      true,
		},
		{
			Name:        "Alpaca Cloud Lace",
			Description: "Baby alpaca blend, 50g / 400m.",
			Price:       decimal.RequireFromString("12.50"),
			Stock:       25,
			Category:    "alpaca",
			Variants:    []string{"grey", "blush"},
			Active:      true,
		},
		{
			Name:        "Cotton Breeze Aran",
			Description: "Mercerised cotton, 100g / 170m.",
			Price:       decimal.RequireFromString("7.25"),
			Stock:       60,
			Category:    "cotton",
			Variants:    []string{"white", "navy", "lemon", "coral"},
			Active:      true,
		},
		{
			Name:        "Chunky Roving",
			Description: "Unspun wool roving for arm knitting.",
			Price:       decimal.RequireFromString("15.00"),
			Stock:       4,
			Category:    "wool",
			Variants:    []string{"charcoal"},
			Active:      true,
		},
	}
}
