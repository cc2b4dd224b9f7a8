package constant

const (
	ADDED                    = "Added successfully"
	DELETED                  = "Deleted successfully"
	INVALID_PAGE_NUMBER      = "invalid page number"
	PAGE_NUMBER_OUT_OF_RANGE = "page number out of range"
	UPDATED                  = "Updated successfully"
)
