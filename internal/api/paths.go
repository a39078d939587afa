// Package api provides the HTTP client for the analytics backend.
package api

// GJSON paths for extracting values from backend responses.
const (
	// Query protocol
	PathFinalResponse = "final_response"

	// Conversation protocol
	PathResponse        = "response"
	PathResponseRole    = "response.role"
	PathResponseContent = "response.content"
	PathChartData       = "chartData"

	// Shared by both protocols and by failed responses
	PathError = "error"
)
