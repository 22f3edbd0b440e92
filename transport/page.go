package transport

// Page is the envelope returned by every list endpoint.
type Page[T any] struct {
	Total int `json:"total"`
	Items []T `json:"items"`
}
