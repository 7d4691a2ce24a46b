package download_test

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/adamwoolhether/apiman/client/download"
)

func ExampleSuggestedName() {
	u, _ := url.Parse("https://files.example.com/reports/q3.csv?token=abc")

	fmt.Println(download.SuggestedName("", u))
	fmt.Println(download.SuggestedName(`attachment; filename="summary.pdf"`, u))
	// Output:
	// q3.csv
	// summary.pdf
}

func ExampleIntoDir() {
	dir, err := os.MkdirTemp("", "example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	for range 2 {
		p, err := download.Handle(
			context.Background(),
			strings.NewReader("data"),
			4,
			download.IntoDir(dir),
			nil,
			download.WithFilename("notes.txt"),
		)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(filepath.Base(p))
	}
	// Output:
	// notes.txt
	// notes-1.txt
}
