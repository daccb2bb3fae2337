package models

// CandidateCardData is the nested card record inside an assembled
// candidate, mirroring the upstream set-payload card shape so
// presentation layers can render it the same way either comes in.
type CandidateCardData struct {
	ID          int        `json:"id"`
	SetID       int        `json:"set_id"`
	SetName     string     `json:"set_name"`
	SetCode     string     `json:"set_code"`
	Name        string     `json:"name"`
	Number      string     `json:"num"`
	ImageURL    string     `json:"img_url"`
	Language    string     `json:"language"`
	ReleaseDate string     `json:"release_date"`
	Secret      bool       `json:"secret"`
	Hot         bool       `json:"hot"`
	Live        bool       `json:"live"`
	StatsURL    string     `json:"stat_url"`
	Stats       []CardStat `json:"stats"`
}

// CandidateSale is one recent ungraded sale attached to a candidate.
type CandidateSale struct {
	SourceID    int64   `json:"id"`
	CardID      int     `json:"card_id"`
	DateSold    string  `json:"date_sold"`
	EbayHandle  string  `json:"ebay_handle"`
	EbayItemID  string  `json:"ebay_item_id"`
	Marketplace string  `json:"marketplace"`
	BidCount    int     `json:"num_bids"`
	Grade       Grade   `json:"psa_grade"`
	SetID       int     `json:"set_id"`
	Price       float64 `json:"sold_price"`
	Title       string  `json:"title"`
}

// Candidate is one fully assembled profitability candidate: base card
// fields joined with analytics, financials and sales volume, plus the
// batch-fetched stat and recent-sale collections. Volume fields
// default to 0 for cards that legitimately have no volume data yet.
type Candidate struct {
	ID              int               `json:"id"`
	Name            string            `json:"name"`
	RawPrice        float64           `json:"raw_price"`
	Psa10Price      float64           `json:"psa_10_price"`
	SetID           int               `json:"set_id"`
	SetName         string            `json:"set_name"`
	SetCode         string            `json:"set_code"`
	StatsURL        string            `json:"stats_url"`
	ReleaseDate     string            `json:"release_date"`
	CardData        CandidateCardData `json:"card_data"`
	Psa10Population int               `json:"psa_10_pop"`
	OtherPopulation int               `json:"non_psa_10_pop"`
	GemRate         float64           `json:"gem_rate"`
	ExpectedValue   float64           `json:"ev"`
	TotalCost       float64           `json:"total_cost"`
	NetGain         float64           `json:"net_gain"`
	LucrativeFactor float64           `json:"lucrative_factor"`
	Psa10Volume     int               `json:"psa10_volume"`
	OtherVolume     int               `json:"non_psa10_volume"`
	LastSaleDate    string            `json:"last_sales_date"`
	RecentRawSales  []CandidateSale   `json:"recent_raw_ebay_sales"`
}
