package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"biorag/internal/domain"
)

// QuestionInput is the input schema shared by both tools.
type QuestionInput struct {
	Question string `json:"question" jsonschema:"what the user wants to do, in plain language"`
}

// RecommendOutput is the output schema for recommend_tools.
type RecommendOutput struct {
	Answer string                 `json:"answer"`
	Tools  []domain.RetrievedTool `json:"tools"`
}

// SearchOutput is the output schema for search_tools.
type SearchOutput struct {
	Tools []domain.RetrievedTool `json:"tools"`
	Count int                    `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recommend_tools",
		Description: "Recommend bioinformatics tools for a task, with a short explanation grounded in the tool catalog",
	}, s.handleRecommend)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_tools",
		Description: "Find the bioinformatics tools in the catalog most similar to a task description",
	}, s.handleSearch)
}

func (s *Server) handleRecommend(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, RecommendOutput, error) {
	st, err := s.pipeline.Run(ctx, input.Question)
	if err != nil {
		s.logger.Warn("recommend_tools failed", zap.Error(err))
		return nil, RecommendOutput{}, err
	}
	return nil, RecommendOutput{Answer: st.Answer, Tools: orEmpty(st.Retrieved)}, nil
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QuestionInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	st, err := s.pipeline.Retrieve(ctx, input.Question)
	if err != nil {
		s.logger.Warn("search_tools failed", zap.Error(err))
		return nil, SearchOutput{}, err
	}
	tools := orEmpty(st.Retrieved)
	return nil, SearchOutput{Tools: tools, Count: len(tools)}, nil
}

func orEmpty(tools []domain.RetrievedTool) []domain.RetrievedTool {
	if tools == nil {
		return []domain.RetrievedTool{}
	}
	return tools
}
