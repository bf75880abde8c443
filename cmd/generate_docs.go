package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/teemow/meetingscheduler/internal/assistant"
	"github.com/teemow/meetingscheduler/internal/calendar"
	"github.com/teemow/meetingscheduler/internal/google"
	"github.com/teemow/meetingscheduler/internal/server"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate tool documentation",
		Long: `Generate markdown documentation for the function the assistant calls and
for every MCP tool. The output is built from the registered definitions, so
it always matches the implementation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// toolDoc is the documented shape shared by agent functions and MCP tools.
type toolDoc struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

func runGenerateDocs(outputFile string) error {
	// No credential is needed to list the tools.
	cal := calendar.NewClient(google.NewFileTokenProvider(os.DevNull))
	serverContext := server.NewServerContext(context.Background(), cal)
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv, err := newMCPServer(serverContext)
	if err != nil {
		return err
	}

	serverTools := mcpSrv.ListTools()
	mcpTools := make([]toolDoc, 0, len(serverTools))
	for _, serverTool := range serverTools {
		mcpTools = append(mcpTools, mcpToolDoc(serverTool.Tool))
	}

	markdown := generateToolsMarkdown([]toolDoc{functionToolDoc(assistant.CalendarTool())}, mcpTools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func mcpToolDoc(tool mcp.Tool) toolDoc {
	return toolDoc{
		Name:        tool.Name,
		Description: tool.Description,
		Properties:  tool.InputSchema.Properties,
		Required:    tool.InputSchema.Required,
	}
}

func functionToolDoc(tool assistant.FunctionTool) toolDoc {
	doc := toolDoc{Name: tool.Name, Description: tool.Description}
	if props, ok := tool.Parameters["properties"].(map[string]any); ok {
		doc.Properties = props
	}
	if required, ok := tool.Parameters["required"].([]string); ok {
		doc.Required = required
	}
	return doc
}

func generateToolsMarkdown(functions, mcpTools []toolDoc) string {
	var sb strings.Builder

	sb.WriteString("# Tools Reference\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	sb.WriteString("## Assistant Functions\n\n")
	sb.WriteString("Functions the scheduling assistant calls while answering a request.\n\n")
	writeToolSection(&sb, functions)

	sb.WriteString("## MCP Tools\n\n")
	sb.WriteString("Tools available when running `meetingscheduler serve`.\n\n")
	writeToolSection(&sb, mcpTools)

	return sb.String()
}

func writeToolSection(sb *strings.Builder, tools []toolDoc) {
	sort.Slice(tools, func(i, j int) bool {
		return tools[i].Name < tools[j].Name
	})
	for _, tool := range tools {
		sb.WriteString(generateToolMarkdown(tool))
		sb.WriteString("\n")
	}
}

func generateToolMarkdown(tool toolDoc) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)

	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	if len(tool.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.Properties))
		for name := range tool.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.Properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.Required, name) {
				requiredStr = "required"
			}

			fmt.Fprintf(&sb, "- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr)
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString("no description")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
