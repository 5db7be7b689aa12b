//go:build ignore

// generate-readme renders the livellm package documentation into README.md.
//
//	go run scripts/generate-readme.go -out README.md
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/doc"
	"go/parser"
	"go/token"
	"io/fs"
	"log"
	"os"
	"regexp"
	"strings"
)

const header = `# livellm-go

Go client for the LiveLLM gateway: provider fallback and binary-to-text
capability negotiation over one logical model name.

![Go Version](https://img.shields.io/badge/Go-1.25+-00ADD8.svg)

`

const cliSection = `## Command line

    go install github.com/livellm/livellm-go/cmd/livellm@latest
    livellm --config livellm.yaml run -m gpt-4o-mini "hello"
    livellm --config livellm.yaml models

`

var (
	blankRuns     = regexp.MustCompile(`\n{3,}`)
	beforeHeading = regexp.MustCompile(`([^\n])\n(## [^\n]+)`)
	afterHeading  = regexp.MustCompile(`(## [^\n]+)\n([^\n])`)
)

func main() {
	dir := flag.String("dir", ".", "directory holding the package")
	pkgName := flag.String("pkg", "livellm", "package whose doc comment is rendered")
	out := flag.String("out", "README.md", "output file")
	flag.Parse()

	text, err := packageDoc(*dir, *pkgName)
	if err != nil {
		log.Fatal(err)
	}

	readme := header + toMarkdown(text) + "\n" + cliSection
	if err := os.WriteFile(*out, []byte(readme), 0o644); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("%s generated from the %s package doc\n", *out, *pkgName)
}

func packageDoc(dir, name string) (string, error) {
	fset := token.NewFileSet()
	notTest := func(fi fs.FileInfo) bool { return !strings.HasSuffix(fi.Name(), "_test.go") }
	pkgs, err := parser.ParseDir(fset, dir, notTest, parser.ParseComments)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", dir, err)
	}
	pkg, ok := pkgs[name]
	if !ok {
		return "", fmt.Errorf("package %s not found in %s", name, dir)
	}

	files := make([]*ast.File, 0, len(pkg.Files))
	for _, f := range pkg.Files {
		files = append(files, f)
	}
	d, err := doc.NewFromFiles(fset, files, "github.com/livellm/livellm-go")
	if err != nil {
		return "", err
	}
	if d.Doc == "" {
		return "", fmt.Errorf("package %s has no doc comment", name)
	}
	return d.Doc, nil
}

// toMarkdown converts go doc comment syntax: "# X" headings become "## X", indented blocks
// become fenced code, and doc links lose their brackets.
func toMarkdown(text string) string {
	var b strings.Builder
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); {
		line := strings.TrimRight(lines[i], " \t")

		switch {
		case strings.HasPrefix(line, "# "):
			b.WriteString("#" + line + "\n\n")
			i++

		case isCode(lines[i]):
			var code []string
			for i < len(lines) && (isCode(lines[i]) || blankInsideCode(lines, i)) {
				code = append(code, dedent(lines[i]))
				i++
			}
			b.WriteString("```" + language(code) + "\n")
			b.WriteString(strings.Join(code, "\n"))
			b.WriteString("\n```\n\n")

		case line == "":
			b.WriteString("\n")
			i++

		default:
			b.WriteString(unlink(line))
			if i+1 < len(lines) && !breaksParagraph(lines[i+1]) && !strings.HasPrefix(strings.TrimSpace(line), "- ") {
				b.WriteString(" ")
			} else {
				b.WriteString("\n")
			}
			i++
		}
	}

	out := blankRuns.ReplaceAllString(b.String(), "\n\n")
	out = beforeHeading.ReplaceAllString(out, "$1\n\n$2")
	return afterHeading.ReplaceAllString(out, "$1\n\n$2")
}

func isCode(line string) bool {
	return (strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ")) && strings.TrimSpace(line) != ""
}

func blankInsideCode(lines []string, i int) bool {
	return strings.TrimSpace(lines[i]) == "" && i+1 < len(lines) && isCode(lines[i+1])
}

func breaksParagraph(next string) bool {
	t := strings.TrimSpace(next)
	return t == "" || strings.HasPrefix(t, "# ") || strings.HasPrefix(t, "- ") || isCode(next)
}

func dedent(line string) string {
	if rest, ok := strings.CutPrefix(line, "\t"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(line, "    "); ok {
		return rest
	}
	return line
}

var docLink = regexp.MustCompile(`\[([A-Za-z_][\w.]*)\]`)

func unlink(line string) string {
	return docLink.ReplaceAllString(line, "`$1`")
}

func language(code []string) string {
	content := strings.Join(code, "\n")
	for _, p := range []string{"go install", "go get", "livellm --", "$ "} {
		if strings.Contains(content, p) {
			return "bash"
		}
	}
	for _, p := range []string{"package ", "func ", "type ", ":=", "livellm.", "context.", "interface {", "struct {"} {
		if strings.Contains(content, p) {
			return "go"
		}
	}
	return ""
}
