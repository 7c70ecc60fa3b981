package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type textInput struct {
	Text string `json:"text" jsonschema:"the text to process"`
}

type wordCount struct {
	Words      int `json:"words"`
	Characters int `json:"characters"`
}

func newServer() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "funcall-mock-mcp", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "word_count",
		Description: "Counts the words and characters of a text",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, wordCount, error) {
		out := wordCount{Words: len(strings.Fields(in.Text)), Characters: utf8.RuneCountInString(in.Text)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%d words, %d characters", out.Words, out.Characters)}},
		}, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reverse_text",
		Description: "Reverses a text character by character",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, any, error) {
		r := []rune(in.Text)
		for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
			r[i], r[j] = r[j], r[i]
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(r)}},
		}, nil, nil
	})

	return server
}

func routes() http.Handler {
	server := newServer()
	mux := http.NewServeMux()
	mux.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}
