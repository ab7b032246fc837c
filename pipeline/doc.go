// Package pipeline answers a text query with the most similar stored
// memories. Three named stages run strictly in order over a shared State:
// embed_query, search_relevant and format_results.
package pipeline
