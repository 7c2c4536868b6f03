package intent

import (
	"reflect"
	"regexp"
	"testing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		query  string
		expect Intent
	}{
		{name: "empty", query: "", expect: Intent{}},
		{name: "greeting", query: "Hallo", expect: Intent{Greet: true}},
		{name: "greeting with punctuation", query: "Guten Morgen!", expect: Intent{Greet: true}},
		{name: "greeting must lead", query: "ich sage hallo", expect: Intent{}},
		{name: "price", query: "was kostet hydrafacial", expect: Intent{Price: true}},
		{name: "price with umlaut", query: "Ist das günstig?", expect: Intent{Price: true}},
		{name: "how much", query: "wie viel kostet botox", expect: Intent{Price: true}},
		{name: "explain", query: "Was ist Microneedling?", expect: Intent{Explain: true}},
		{name: "explain with umlaut", query: "Können Sie mir das erklären", expect: Intent{Explain: true}},
		{name: "booking", query: "Ich möchte einen Termin", expect: Intent{Booking: true}},
		{name: "hours", query: "Wie sind die Öffnungszeiten?", expect: Intent{Hours: true}},
		{name: "hours question", query: "wann habt ihr offen", expect: Intent{Hours: true}},
		{
			name:   "several flags at once",
			query:  "Hallo, was kostet ein Termin für Laser und was ist das?",
			expect: Intent{Greet: true, Price: true, Booking: true, Explain: true},
		},
		{name: "unrelated", query: "Laser Haarentfernung", expect: Intent{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.query); got != tt.expect {
				t.Fatalf("expected %+v, got %+v", tt.expect, got)
			}
		})
	}
}

func TestGreetingOnly(t *testing.T) {
	t.Parallel()

	if !Classify("hallo").GreetingOnly() {
		t.Fatal("expected pure greeting")
	}
	if Classify("hallo, was kostet botox").GreetingOnly() {
		t.Fatal("greeting with a price question is not greeting only")
	}
	if (Intent{}).Any() {
		t.Fatal("empty intent reports flags")
	}
}

func TestFlags(t *testing.T) {
	t.Parallel()

	got := Intent{Price: true, Hours: true}.Flags()
	if !reflect.DeepEqual(got, []string{"price", "hours"}) {
		t.Fatalf("unexpected flags: %v", got)
	}

	if got := (Intent{}).Flags(); len(got) != 0 {
		t.Fatalf("expected no flags, got %v", got)
	}
}

func TestClassifyWithCustomRules(t *testing.T) {
	t.Parallel()

	rules := append(DefaultRules(), Rule{Flag: FlagBooking, Pattern: regexp.MustCompile(`\bslot\b`)})

	if got := ClassifyWith("freier slot morgen?", rules); !got.Booking {
		t.Fatalf("expected custom booking rule to match, got %+v", got)
	}

	if got := Classify("freier slot morgen?"); got.Booking {
		t.Fatal("custom rule leaked into default rules")
	}
}
