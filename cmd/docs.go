package cmd

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// https://pmarsceill.github.io/just-the-docs/docs/navigation-structure/
const rootPage = `---
layout: default
title: %s
nav_order: %d
has_children: true
permalink: /
---
`

const childPage = `---
layout: default
title: %s
parent: %s
nav_order: %d
---
`

// nav order of each command's page in the docs sidebar
var navOrder = map[string]int{
	"pangraph":        0,
	"pangraph_build":  0,
	"pangraph_align":  1,
	"pangraph_newick": 2,
}

// docsCmd regenerates the Markdown documentation pages
var docsCmd = &cobra.Command{
	Use:    "docs",
	Short:  "Generate Markdown docs for the commands",
	Run:    runDocs,
	Hidden: true,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) {
	if err := doc.GenMarkdownTreeCustom(rootCmd, "./docs", filePrepender, linkHandler); err != nil {
		stderr.Fatalln(err)
	}
}

// filePrepender adds the YAML headings required by the just-the-docs theme
// https://github.com/spf13/cobra/blob/master/doc/md_docs.md
func filePrepender(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, path.Ext(name))

	if base == "pangraph" {
		return fmt.Sprintf(rootPage, base, navOrder[base])
	}
	return fmt.Sprintf(childPage, strings.TrimPrefix(base, "pangraph_"), "pangraph", navOrder[base])
}

// linkHandler returns the URL to a documentation page
func linkHandler(filename string) string {
	name := filepath.Base(filename)
	base := strings.TrimSuffix(name, path.Ext(name))

	if base == "pangraph" {
		return "/"
	}
	return base
}
