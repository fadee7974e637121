package wallet

import (
	"errors"
	"testing"
	"time"
)

func TestCursorRoundTrip(test *testing.T) {
	test.Parallel()
	cursor := Cursor{CreatedAt: fixedNow.Add(123 * time.Microsecond), ID: "01HZY"}
	parsed, err := ParseCursor(cursor.Encode())
	if err != nil {
		test.Fatalf("parse failed: %v", err)
	}
	if parsed == nil || !parsed.CreatedAt.Equal(cursor.CreatedAt) || parsed.ID != cursor.ID {
		test.Fatalf("unexpected cursor %+v", parsed)
	}
	empty, err := ParseCursor(" ")
	if err != nil || empty != nil {
		test.Fatalf("empty token must yield no cursor, got %+v %v", empty, err)
	}
	for _, token := range []string{"!!!", "bm8tZGVsaW1pdGVy", "YWJjfA"} {
		if _, err := ParseCursor(token); !errors.Is(err, ErrInvalidPage) {
			test.Fatalf("token %q: expected invalid page, got %v", token, err)
		}
	}
}

func TestNewPageLimits(test *testing.T) {
	test.Parallel()
	page, err := NewPage(0, "")
	if err != nil || page.Limit != DefaultPageLimit || page.Cursor != nil {
		test.Fatalf("unexpected default page %+v %v", page, err)
	}
	if _, err := NewPage(-1, ""); !errors.Is(err, ErrInvalidPage) {
		test.Fatalf("expected negative limit rejection, got %v", err)
	}
	if _, err := NewPage(MaxPageLimit+1, ""); !errors.Is(err, ErrInvalidPage) {
		test.Fatalf("expected oversized limit rejection, got %v", err)
	}
}

func TestCursorAdmitsStrictlyOlderRows(test *testing.T) {
	test.Parallel()
	cursor := Cursor{CreatedAt: fixedNow, ID: "m"}
	testCases := []struct {
		name        string
		transaction Transaction
		want        bool
	}{
		{name: "older", transaction: Transaction{CreatedAt: fixedNow.Add(-time.Second), ID: "z"}, want: true},
		{name: "same time smaller id", transaction: Transaction{CreatedAt: fixedNow, ID: "a"}, want: true},
		{name: "cursor row", transaction: Transaction{CreatedAt: fixedNow, ID: "m"}, want: false},
		{name: "newer", transaction: Transaction{CreatedAt: fixedNow.Add(time.Second), ID: "a"}, want: false},
	}
	for _, testCase := range testCases {
		if got := cursor.Admits(testCase.transaction); got != testCase.want {
			test.Fatalf("%s: expected %v, got %v", testCase.name, testCase.want, got)
		}
	}
}
