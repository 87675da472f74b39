package handlers

import (
	"encoding/json"
	"net/http"
)

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func object(properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": properties}
}

func arrayOf(items map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": items}
}

var (
	integer  = map[string]interface{}{"type": "integer"}
	number   = map[string]interface{}{"type": "number"}
	str      = map[string]interface{}{"type": "string"}
	boolean  = map[string]interface{}{"type": "boolean"}
	dateTime = map[string]interface{}{"type": "string", "format": "date-time"}
	nullable = map[string]interface{}{"type": "number", "nullable": true}
)

var errorSchema = object(map[string]interface{}{
	"error":   str,
	"message": str,
	"code":    integer,
	"kind": map[string]interface{}{
		"type": "string",
		"enum": []string{"schema_mismatch", "imputation", "invalid_date", "insufficient_data", "degenerate_fit"},
	},
	"column": str,
})

var notReady = jsonResponse("No analysis has completed yet", errorSchema)

var summarySchema = object(map[string]interface{}{
	"run_id":              str,
	"source":              str,
	"batches":             integer,
	"rows":                integer,
	"completed_at":        dateTime,
	"has_missing_data":    boolean,
	"weeks":               integer,
	"months":              integer,
	"temp_o3_correlation": number,
	"regression": object(map[string]interface{}{
		"slope":     number,
		"intercept": number,
		"r_squared": number,
	}),
})

func getOp(summary, description string, ok map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     summary,
			"description": description,
			"responses": map[string]interface{}{
				"200": ok,
				"503": notReady,
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Air Quality Analysis API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Air Quality Analysis API",
			"description": "Exploratory analysis of hourly station readings: imputation, weekly and monthly temperature aggregates, and the temperature/ozone relationship",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/analysis": getOp(
				"Latest run overview",
				"Row counts, missing data flag and headline statistics of the latest successful run",
				jsonResponse("Run overview", summarySchema),
			),
			"/api/analysis/weekly": getOp(
				"Weekly aggregates",
				"Mean, min and max of TEMP and O3 per Monday-starting week, ascending",
				jsonResponse("Weekly rows", object(map[string]interface{}{
					"weeks": arrayOf(object(map[string]interface{}{
						"week_start": dateTime,
						"count":      integer,
						"temp_mean":  number,
						"temp_min":   number,
						"temp_max":   number,
						"o3_mean":    number,
						"o3_min":     number,
						"o3_max":     number,
					})),
					"temp_series": arrayOf(object(map[string]interface{}{
						"time":  dateTime,
						"value": number,
					})),
				})),
			),
			"/api/analysis/monthly": getOp(
				"Monthly temperature trend",
				"Mean TEMP per calendar month pooled across years",
				jsonResponse("Monthly rows", arrayOf(object(map[string]interface{}{
					"month":     integer,
					"count":     integer,
					"temp_mean": number,
				}))),
			),
			"/api/analysis/heatmap": getOp(
				"Year by month temperature grid",
				"Mean TEMP per (year, month); absent cells are null",
				jsonResponse("Pivot", object(map[string]interface{}{
					"years":  arrayOf(integer),
					"months": arrayOf(integer),
					"cells":  arrayOf(arrayOf(nullable)),
				})),
			),
			"/api/analysis/distribution": getOp(
				"Monthly temperature distribution",
				"Five-number summary of TEMP per calendar month",
				jsonResponse("Distribution rows", arrayOf(object(map[string]interface{}{
					"month":  integer,
					"count":  integer,
					"min":    number,
					"q1":     number,
					"median": number,
					"q3":     number,
					"max":    number,
				}))),
			),
			"/api/analysis/correlation": getOp(
				"Correlation matrix",
				"Pearson correlation over TEMP, O3, PM2.5, PM10, SO2, NO2 and CO",
				jsonResponse("Matrix", object(map[string]interface{}{
					"matrix": object(map[string]interface{}{
						"variables": arrayOf(str),
						"values":    arrayOf(arrayOf(number)),
					}),
					"temp_o3": number,
				})),
			),
			"/api/analysis/regression": getOp(
				"TEMP to O3 regression",
				"Least-squares line O3 = slope * TEMP + intercept with fitted points",
				jsonResponse("Fit", object(map[string]interface{}{
					"predictor":    str,
					"response":     str,
					"slope":        number,
					"intercept":    number,
					"r_squared":    number,
					"observations": integer,
					"line":         arrayOf(object(map[string]interface{}{"x": number, "y": number})),
				})),
			),
			"/api/analysis/missing": getOp(
				"Missing data pattern",
				"Per-column missing counts and percentages before imputation",
				jsonResponse("Missing columns", object(map[string]interface{}{
					"has_missing_data": boolean,
					"columns": arrayOf(object(map[string]interface{}{
						"column":     str,
						"missing":    integer,
						"percentage": number,
					})),
				})),
			),
			"/api/analysis/preview": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Data preview",
					"description": "Merged rows before imputation, paginated",
					"parameters": []map[string]interface{}{
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default: 1)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 1},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Rows per page (default: 5, max: 1000)",
							"required":    false,
							"schema":      map[string]interface{}{"type": "integer", "default": 5},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Rows keyed by column name", object(map[string]interface{}{
							"data":        arrayOf(map[string]interface{}{"type": "object"}),
							"total":       integer,
							"page":        integer,
							"limit":       integer,
							"total_pages": integer,
						})),
						"400": jsonResponse("Invalid pagination", errorSchema),
						"503": notReady,
					},
				},
			},
			"/api/analysis/refresh": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Run the analysis",
					"description": "Loads all batches from the configured source and replaces the latest result on success",
					"responses": map[string]interface{}{
						"200": jsonResponse("New run overview", summarySchema),
						"422": jsonResponse("The data cannot be analysed", errorSchema),
						"500": jsonResponse("Loading failed", errorSchema),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its store are reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", object(map[string]interface{}{
							"status":      str,
							"last_run_id": str,
							"database":    str,
						})),
						"503": jsonResponse("Store unreachable", object(map[string]interface{}{"status": str})),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": str,
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
