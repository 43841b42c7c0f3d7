package utils

// TotalPages returns how many pages a result set of total rows spans
// at perPage rows each. Empty sets and nonsense page sizes count as
// zero pages rather than erroring.
func TotalPages(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// PageOffset converts a 1-based page number into a row offset. Pages
// below 1 clamp to the first page.
func PageOffset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
