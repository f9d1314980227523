// Copyright (C) 2025 Escript Labs (oss@escriptlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/escriptlabs/typeindex/index"
	"github.com/escriptlabs/typeindex/resolver"
)

var (
	queryPlatformVersion string
	queryProjectRoot     string
)

// addIndexFlags attaches the flags every query-side command shares.
func addIndexFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&queryPlatformVersion, "platform-version", "", "platform version to query")
	cmd.Flags().StringVar(&queryProjectRoot, "project-root", "", "project source root")
}

// applyIndexFlags overlays the query flags onto the resolved config.
func applyIndexFlags() {
	if queryPlatformVersion != "" {
		cfg.PlatformVersion = queryPlatformVersion
	}
	if queryProjectRoot != "" {
		cfg.ProjectRoot = queryProjectRoot
	}
}

// queryCmd looks one entity up by name.
var queryCmd = &cobra.Command{
	Use:   "query NAME",
	Short: "Look up one type by qualified or display name",
	Long: `Look up one type. Qualified names resolve exactly; a bare display
name falls back to the documented tie-break order (configuration first).

Examples:
  typeindex query "Catalogs.Customers"
  typeindex query Customers
  typeindex query "Catalogs.Customers" --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIndexFlags()
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		e, ok := idx.FindEntity(args[0])
		if !ok {
			e, ok = idx.FindEntityByDisplayName(args[0])
		}
		if !ok {
			suggest(idx, args[0])
			return fmt.Errorf("unknown type %q", args[0])
		}
		if flagJSON {
			return printJSON(e)
		}
		fmt.Printf("%s\n", e.QualifiedName)
		fmt.Printf("  display name: %s\n", e.DisplayName)
		fmt.Printf("  kind:         %s\n", e.Kind)
		fmt.Printf("  category:     %s\n", e.Category)
		fmt.Printf("  source:       %s\n", e.Provenance.Stream)
		fmt.Printf("  facets:      ")
		for _, k := range e.FacetKinds() {
			fmt.Printf(" %s", k)
		}
		if e.IsBare() {
			fmt.Printf(" (bare)")
		}
		fmt.Println()
		return nil
	},
}

// methodsCmd lists the aggregated methods of one entity.
var methodsCmd = &cobra.Command{
	Use:   "methods NAME",
	Short: "List every method a type exposes across all facets",
	Long: `List the union of template methods and entity extensions across all
facets, in template-then-extension order. Extension definitions override
same-named template methods.

Examples:
  typeindex methods "Catalogs.Customers"
  typeindex methods ValueTable --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIndexFlags()
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		if _, ok := idx.FindEntity(args[0]); !ok {
			suggest(idx, args[0])
			return fmt.Errorf("unknown type %q", args[0])
		}
		methods := idx.AllMethods(args[0])
		if flagJSON {
			return printJSON(methods)
		}
		for _, m := range methods {
			if m.ReturnType != "" {
				fmt.Printf("%s() -> %s\n", m.Name, m.ReturnType)
			} else {
				fmt.Printf("%s()\n", m.Name)
			}
		}
		return nil
	},
}

// checkCmd tests assignability between two type names.
var checkCmd = &cobra.Command{
	Use:   "check FROM TO",
	Short: "Check whether FROM is usable where TO is expected",
	Long: `Check assignability. The relation is facet/template membership, not
subclassing: a catalog entity is assignable to "CatalogReference" because
its facet set includes the Reference facet of the Catalog shape.

Exit status is 0 when assignable, 1 otherwise.

Examples:
  typeindex check "Catalogs.Customers" "CatalogReference"
  typeindex check "Documents.Invoice" "CatalogReference"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIndexFlags()
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		ok := idx.IsAssignable(args[0], args[1])
		if flagJSON {
			return printJSON(map[string]any{"from": args[0], "to": args[1], "assignable": ok})
		}
		if !ok {
			return fmt.Errorf("%s is not assignable to %s", args[0], args[1])
		}
		fmt.Printf("%s is assignable to %s\n", args[0], args[1])
		return nil
	},
}

var (
	completeContext string
	completeMethod  string
)

// completeCmd lists completion items for a usage context.
var completeCmd = &cobra.Command{
	Use:   "complete [TYPE]",
	Short: "List completion items for a usage context",
	Long: `List the members or type names valid at a usage site.

Contexts:
  empty-line   - global-context members (no TYPE argument)
  after-dot    - members of TYPE's context facet
  after-new    - constructible type names (no TYPE argument)
  for-each     - members of TYPE's iteration element
  index-access - members of TYPE's [] element
  method-result - facet reached by --method on TYPE

Examples:
  typeindex complete --context empty-line
  typeindex complete "Catalogs.Customers" --context after-dot
  typeindex complete --context after-new
  typeindex complete ValueTable --context for-each
  typeindex complete "Catalogs.Customers" --context method-result --method GetObject`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIndexFlags()
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		typeName := ""
		if len(args) == 1 {
			typeName = args[0]
		}
		ctx, err := parseContext(completeContext, typeName, completeMethod)
		if err != nil {
			return err
		}
		items := resolver.Completions(idx, ctx)
		if flagJSON {
			return printJSON(items)
		}
		for _, item := range items {
			if item.Detail != "" {
				fmt.Printf("%-12s %s: %s\n", item.Kind, item.Label, item.Detail)
			} else {
				fmt.Printf("%-12s %s\n", item.Kind, item.Label)
			}
		}
		return nil
	},
}

// parseContext maps the CLI context name to a resolver context.
func parseContext(name, typeName, method string) (resolver.Context, error) {
	switch name {
	case "empty-line", "":
		return resolver.EmptyLine(), nil
	case "after-dot":
		if typeName == "" {
			return resolver.Context{}, fmt.Errorf("context after-dot requires a TYPE argument")
		}
		return resolver.AfterDot(typeName), nil
	case "after-new":
		return resolver.AfterNew(), nil
	case "for-each":
		if typeName == "" {
			return resolver.Context{}, fmt.Errorf("context for-each requires a TYPE argument")
		}
		return resolver.ForEachLoop(typeName), nil
	case "index-access":
		if typeName == "" {
			return resolver.Context{}, fmt.Errorf("context index-access requires a TYPE argument")
		}
		return resolver.IndexingAccess(typeName), nil
	case "method-result":
		if typeName == "" || method == "" {
			return resolver.Context{}, fmt.Errorf("context method-result requires a TYPE argument and --method")
		}
		return resolver.MethodResultOn(typeName, method), nil
	default:
		return resolver.Context{}, fmt.Errorf("unknown context %q", name)
	}
}

// statsCmd prints index composition counters.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print index composition counters",
	Long: `Print the index composition: entity counts per source, template
count and relationship-graph sizes. Counters are maintained at build time,
so this never traverses the index.

Examples:
  typeindex stats
  typeindex stats --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyIndexFlags()
		idx, err := loadIndex(cmd.Context())
		if err != nil {
			return err
		}
		stats := idx.Stats()
		if flagJSON {
			return printJSON(stats)
		}
		printStats(stats)
		return nil
	},
}

func printStats(stats index.Stats) {
	fmt.Printf("Platform version:   %s\n", stats.PlatformVersion)
	fmt.Printf("Entities:           %d\n", stats.TotalEntities)
	fmt.Printf("  platform:         %d\n", stats.PlatformEntities)
	fmt.Printf("  configuration:    %d\n", stats.ConfigEntities)
	fmt.Printf("  global:           %d\n", stats.GlobalElements)
	fmt.Printf("Templates:          %d\n", stats.Templates)
	fmt.Printf("Membership edges:   %d\n", stats.MembershipEdges)
	fmt.Printf("Cross-facet edges:  %d\n", stats.CrossFacetEdges)
	fmt.Printf("Reverse method keys: %d\n", stats.ReverseMethodKeys)
}

func init() {
	addIndexFlags(queryCmd)
	addIndexFlags(methodsCmd)
	addIndexFlags(checkCmd)
	addIndexFlags(completeCmd)
	addIndexFlags(statsCmd)

	completeCmd.Flags().StringVar(&completeContext, "context", "empty-line", "usage context (see help)")
	completeCmd.Flags().StringVar(&completeMethod, "method", "", "method name for method-result context")
}
