package models

// AnalysisRequest carries pre-supplied listing text for assessment.
type AnalysisRequest struct {
	ListingText string `json:"listingText" required:"false" doc:"Listing description text"`
	HistoryText string `json:"historyText" required:"false" doc:"Auction or damage history text"`
	Price       string `json:"price" required:"false" doc:"Asking price as entered"`
}
