package domain

// Write acknowledgements keep the shape the web client already parses.

type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

func Inserted(id string) InsertResult {
	return InsertResult{Acknowledged: true, InsertedID: id}
}

func Updated(n int64) UpdateResult {
	return UpdateResult{Acknowledged: true, MatchedCount: n, ModifiedCount: n}
}

func Deleted(n int64) DeleteResult {
	return DeleteResult{Acknowledged: true, DeletedCount: n}
}

type TokenRes struct {
	Token string `json:"token"`
}

type PaymentIntentReq struct {
	Price float64 `json:"price"`
}

type PaymentIntentRes struct {
	ClientSecret string `json:"clientSecret"`
}
