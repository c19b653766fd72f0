package types

import "testing"

func TestParseMoney(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"$19.99", "19.99"},
		{"19.99", "19.99"},
		{"$1,299", "1299"},
		{"  $49.99  ", "49.99"},
		{"free", "0"},
		{"", "0"},
		{"$", "0"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := ParseMoney(tc.input)
		if got.String() != tc.want {
			t.Errorf("ParseMoney(%q) = %s, want %s", tc.input, got.String(), tc.want)
		}
	}
}

func TestEnrollmentStatusTerminal(t *testing.T) {
	if EnrollmentStatusPending.Terminal() {
		t.Error("pending should not be terminal")
	}
	if !EnrollmentStatusApproved.Terminal() {
		t.Error("approved should be terminal")
	}
	if !EnrollmentStatusRejected.Terminal() {
		t.Error("rejected should be terminal")
	}
}

func TestMCQQuestionValidate(t *testing.T) {
	valid := MCQQuestion{
		Question:      "What does TCP stand for?",
		Answers:       []string{"Transmission Control Protocol", "Total Court Press"},
		CorrectAnswer: "A",
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid question rejected: %v", err)
	}

	cases := []struct {
		name string
		q    MCQQuestion
	}{
		{"short question", MCQQuestion{Question: "a?", Answers: []string{"x", "y"}, CorrectAnswer: "A"}},
		{"one answer", MCQQuestion{Question: "Pick one", Answers: []string{"only"}, CorrectAnswer: "A"}},
		{"five answers", MCQQuestion{Question: "Pick one", Answers: []string{"a", "b", "c", "d", "e"}, CorrectAnswer: "A"}},
		{"empty answer", MCQQuestion{Question: "Pick one", Answers: []string{"a", ""}, CorrectAnswer: "A"}},
		{"bad letter", MCQQuestion{Question: "Pick one", Answers: []string{"a", "b"}, CorrectAnswer: "E"}},
	}
	for _, tc := range cases {
		if err := tc.q.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestStringListContains(t *testing.T) {
	list := StringList{"v1", "v2"}
	if !list.Contains("v1") {
		t.Error("expected v1")
	}
	if list.Contains("v3") {
		t.Error("unexpected v3")
	}
	if StringList(nil).Contains("v1") {
		t.Error("nil list contains nothing")
	}
}

func TestScanJSONColumnTypes(t *testing.T) {
	var list StringList
	if err := list.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0] != "a" {
		t.Errorf("scan from bytes: %v", list)
	}

	var scores IntMap
	if err := scores.Scan(`{"quiz1":80}`); err != nil {
		t.Fatal(err)
	}
	if scores["quiz1"] != 80 {
		t.Errorf("scan from string: %v", scores)
	}

	var empty StringMap
	if err := empty.Scan(nil); err != nil {
		t.Fatal(err)
	}
	if empty != nil {
		t.Errorf("nil column should leave dest untouched: %v", empty)
	}

	if err := list.Scan(42); err == nil {
		t.Error("expected error for unsupported column type")
	}
}
