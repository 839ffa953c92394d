package client

// Pokemon is a single search hit.
type Pokemon struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Classification string `json:"classification"`
}

// SearchResults is one page of the search endpoint.
type SearchResults struct {
	Pokemon []Pokemon `json:"pokemon"`
	// NextPage is an opaque continuation token, passed back verbatim.
	NextPage string `json:"nextPage,omitempty"`
}

// ErrorResponse is the body of a 500 response.
type ErrorResponse struct {
	Error string `json:"error"`
}
