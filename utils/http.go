package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by outbound fetches (photo imports by URL).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
