package mcp

import "github.com/mark3labs/mcp-go/mcp"

func ContentToPayload(contents []mcp.Content) (any, string) {
	return contentToPayload(contents)
}
