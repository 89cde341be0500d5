package models

import "time"

// SalesRecord is one franchisee's metrics for one calendar day.
type SalesRecord struct {
	Email     string    `json:"email"`
	Day       time.Time `json:"day"`
	Sale      float64   `json:"sale"`
	Customers int       `json:"customers"`
	Orders    int       `json:"orders"`
	ItemsSold int       `json:"itemsSold"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SalesMetrics are the mutable fields of a SalesRecord.
type SalesMetrics struct {
	Sale      float64 `json:"sale"`
	Customers int     `json:"customers"`
	Orders    int     `json:"orders"`
	ItemsSold int     `json:"itemsSold"`
}

// SalesSummary aggregates a set of SalesRecords.
type SalesSummary struct {
	Days                int        `json:"days"`
	TotalRevenue        float64    `json:"totalRevenue"`
	TotalCustomers      int        `json:"totalCustomers"`
	TotalOrders         int        `json:"totalOrders"`
	TotalItemsSold      int        `json:"totalItemsSold"`
	AverageDailyRevenue float64    `json:"averageDailyRevenue"`
	AverageTicket       float64    `json:"averageTicket"`
	BestDay             *time.Time `json:"bestDay,omitempty"`
}
