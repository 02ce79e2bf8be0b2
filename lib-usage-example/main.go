package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/sw33tLie/intender/pkg/fuzzy"
	"github.com/sw33tLie/intender/pkg/index"
	"github.com/sw33tLie/intender/pkg/intention"
)

type intentionFlags []string

func (f *intentionFlags) String() string     { return strings.Join(*f, ",") }
func (f *intentionFlags) Set(v string) error { *f = append(*f, v); return nil }

func main() {
	// Usage: go run *.go -intention "youtube.com=watch one lecture" -url "https://www.youtube.com/watch?v=x" -phrase "watch one lectrue"

	var intentions intentionFlags
	flag.Var(&intentions, "intention", "url=phrase pair, may be repeated")
	urlFlag := flag.String("url", "", "URL being visited")
	phraseFlag := flag.String("phrase", "", "Phrase typed by the user")

	// Parse the command-line flags
	flag.Parse()

	if *urlFlag == "" {
		fmt.Println("URL is required. Please provide it using -url flag.")
		return
	}

	var raws []intention.Raw
	for _, pair := range intentions {
		u, phrase, ok := strings.Cut(pair, "=")
		if !ok {
			fmt.Printf("Skipping %q: expected url=phrase\n", pair)
			continue
		}
		raw := intention.NewRaw()
		raw.URL, raw.Phrase = u, phrase
		raws = append(raws, raw)
	}

	// Rules that fail to parse are skipped by the index
	entry, ok := index.Build(raws).Lookup(*urlFlag)
	if !ok {
		fmt.Println("No intention for", *urlFlag)
		return
	}
	fmt.Printf("%s is covered by %q, expected phrase %q\n", *urlFlag, entry.Intention.Scope.OriginalURL, entry.Intention.Phrase)

	if *phraseFlag != "" {
		fmt.Println("accepted:", fuzzy.Check(*phraseFlag, entry.Intention.Phrase, fuzzy.DefaultOptions()))
	}
}
