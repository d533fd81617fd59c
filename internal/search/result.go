package search

// Place is one document of the local keyword search. Fields the tool does
// not use (coordinates, distance, ids) are dropped on decode.
type Place struct {
	PlaceName    string `json:"place_name"`
	AddressName  string `json:"address_name"`
	CategoryName string `json:"category_name"`
	PlaceURL     string `json:"place_url"`
	Phone        string `json:"phone"`
}

// WebDocument is one result of the web search, used as commentary about a place.
type WebDocument struct {
	Title    string `json:"title"`
	Contents string `json:"contents"`
}

// ImageDocument is one result of the image search. The zero value means no image.
type ImageDocument struct {
	ImageURL string `json:"image_url"`
}

type documentsResponse[T any] struct {
	Documents []T `json:"documents"`
}
