package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	node, err := html.Parse(strings.NewReader(
		`<div><span>Roronoa</span> <b>Zoro</b></div>`,
	))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Roronoa Zoro", GetText(node))
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "Roronoa   Zoro", expected: "Roronoa Zoro"},
		{input: "  padded  ", expected: "padded"},
		{input: "with\x00control\x07chars", expected: "withcontrolchars"},
		{input: "", expected: ""},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, CleanText(tc.input), "input=%q", tc.input)
	}
}
