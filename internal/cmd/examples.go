package cmd

import (
	"math/rand"
	"regexp"

	"github.com/dotcommander/blgate/internal/present"
)

var examples = map[string]string{
	"Publish a function manifest":        `IMAGE="registry/echo:1.2" blgate publish functions "echo-tool"`,
	"Republish on every manifest change": `blgate publish --watch --dir "./resources" agents "support"`,
	"Serve an agent on port 8080":        `BL_NAME="support" BL_WORKSPACE="acme" blgate serve --port 8080`,
	"Stream an answer from the gateway":  `curl -N -d '{"inputs":"hello"}' localhost:8080 | tee answer.txt`,
}

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc
}

func cheapHighlighting(s present.Styles, code string) string {
	code = regexp.
		MustCompile(`"([^"\\]|\\.)*"`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Quote.Render(x)
		})
	code = regexp.
		MustCompile(`\|`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Pipe.Render(x)
		})
	return code
}
