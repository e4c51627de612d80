package genversion

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

var outputTemplate = template.Must(template.New("output").Parse(outputTemplateStr))

const outputTemplateStr = `// Code generated by genversion. DO NOT EDIT.

package gen

// Version is the commit the binary was built from.
func Version() string {
	return "{{.}}"
}
`

func GenFile(commitHash string, outFile io.Writer) error {
	return outputTemplate.Execute(outFile, commitHash)
}

// Returns the commit hash that a .git/HEAD file points at. HEAD might hold a
// raw hash like
//
//	c0ffeec0ffec0ffec0ffec0ffec0ffec0ffeec0f
//
// or a line like
//
//	ref: refs/heads/main
//
// in which case the ref is read relative to HEAD's directory, falling back to
// packed-refs when there is no loose ref file.
func ResolveHead(headPath string) (string, error) {
	headBytes, err := os.ReadFile(headPath)
	if err != nil {
		return "", fmt.Errorf("couldn't os.ReadFile(%q): %w", headPath, err)
	}

	commitHash := headBytes
	if bytes.HasPrefix(headBytes, []byte("ref: ")) {
		ref := strings.TrimSpace(strings.SplitAfterN(string(headBytes), " ", 2)[1])
		gitDir := filepath.Dir(headPath)
		commitHashPath := filepath.Join(gitDir, filepath.FromSlash(ref))
		commitHash, err = os.ReadFile(commitHashPath)
		if err != nil {
			packed, packedErr := findPackedRef(filepath.Join(gitDir, "packed-refs"), ref)
			if packedErr != nil {
				return "", fmt.Errorf("couldn't os.ReadFile(%q): %w", commitHashPath, err)
			}
			commitHash = []byte(packed)
		}
	}
	hash := string(bytes.TrimSpace(commitHash))
	if hash == "" {
		return "", fmt.Errorf("no commit hash found via %q", headPath)
	}
	return hash, nil
}

// packed-refs lines look like '<hash> <ref>'; comments start with '#' and
// peeled tags with '^'.
func findPackedRef(packedPath, ref string) (string, error) {
	data, err := os.ReadFile(packedPath)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		hash, name, found := strings.Cut(strings.TrimSpace(line), " ")
		if found && name == ref {
			return hash, nil
		}
	}
	return "", fmt.Errorf("%q not in %q", ref, packedPath)
}
