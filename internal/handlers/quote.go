package handlers

import (
	"net/http"

	"github.com/mkravets/projectdesk/internal/handlers/render"
)

func handleRandomQuote(quoteService quoteService) http.Handler {
	type response struct {
		Content string   `json:"content"`
		Author  string   `json:"author"`
		Tags    []string `json:"tags"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		quote := quoteService.GetRandomQuote(r.Context())

		tags := quote.Tags
		if tags == nil {
			tags = []string{}
		}
		render.JSON(w, response{Content: quote.Content, Author: quote.Author, Tags: tags})
	})
}
