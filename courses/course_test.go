package courses

import (
	"encoding/json"
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func TestCourse_UnmarshalFlatObject(t *testing.T) {
	data := `{"id": 12, "category": "BEGINNER", "seqNo": 3, "description": "Angular for Beginners", "lessonsCount": 10}`

	var c Course
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if c.ID != "12" {
		t.Errorf("ID = %q, want 12", c.ID)
	}
	if c.Category != "BEGINNER" || c.SeqNo != 3 {
		t.Errorf("Category, SeqNo = %q, %d, want BEGINNER, 3", c.Category, c.SeqNo)
	}
	if c.Fields["description"] != "Angular for Beginners" {
		t.Errorf("Fields[description] = %v", c.Fields["description"])
	}
	if n, ok := c.Fields["lessonsCount"].(json.Number); !ok || n.String() != "10" {
		t.Errorf("Fields[lessonsCount] = %#v, want json.Number 10", c.Fields["lessonsCount"])
	}
	for _, k := range []string{"id", "category", "seqNo"} {
		if _, ok := c.Fields[k]; ok {
			t.Errorf("typed key %q leaked into Fields", k)
		}
	}
}

func TestCourse_MarshalKeepsLargeNumbers(t *testing.T) {
	in := `{"id":"c1","category":"A","seqNo":1,"price":12345678901234567890}`

	var c Course
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal(out) error = %v", err)
	}
	if string(back["price"]) != "12345678901234567890" {
		t.Errorf("price = %s, want exact digits", back["price"])
	}
	if string(back["seqNo"]) != "1" || string(back["id"]) != `"c1"` {
		t.Errorf("typed fields = id %s seqNo %s", back["id"], back["seqNo"])
	}
}

func TestCourse_UnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing id", `{"category":"A"}`},
		{"bool id", `{"id":true}`},
		{"numeric category", `{"id":"c1","category":7}`},
		{"fractional seqNo", `{"id":"c1","seqNo":1.5}`},
		{"seqNo beyond int range", `{"id":"c1","seqNo":1e300}`},
		{"not an object", `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Course
			if err := json.Unmarshal([]byte(tt.data), &c); err == nil {
				t.Errorf("Unmarshal(%s) succeeded, want error", tt.data)
			}
		})
	}
}

func TestCourse_UnmarshalIntegralSeqNo(t *testing.T) {
	tests := []struct {
		data string
		want int
	}{
		{`{"id":"c1","seqNo":2.0}`, 2},
		{`{"id":"c1","seqNo":1e2}`, 100},
		{`{"id":"c1","seqNo":-3.0}`, -3},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			var c Course
			if err := json.Unmarshal([]byte(tt.data), &c); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if c.SeqNo != tt.want {
				t.Errorf("SeqNo = %d, want %d", c.SeqNo, tt.want)
			}
		})
	}
}

func TestCourse_ApplyIntegralJSONNumber(t *testing.T) {
	got, err := Course{ID: "c1", SeqNo: 1}.Apply(Changes{"seqNo": json.Number("5.0")})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.SeqNo != 5 {
		t.Errorf("SeqNo = %d, want 5", got.SeqNo)
	}
}

func TestEnvelope_Unmarshal(t *testing.T) {
	data := `{"payload":[{"id":"c1","category":"A","seqNo":2},{"id":"c2","category":"B","seqNo":1}]}`

	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got := ids(env.Payload); !slices.Equal(got, []string{"c1", "c2"}) {
		t.Errorf("payload ids = %v", got)
	}
}

func TestCourse_Apply(t *testing.T) {
	base := Course{
		ID:       "c1",
		Category: "BEGINNER",
		SeqNo:    2,
		Fields:   map[string]any{"description": "old", "lessonsCount": 10},
	}

	tests := []struct {
		name    string
		changes Changes
		check   func(t *testing.T, got Course)
	}{
		{
			name:    "seqNo",
			changes: Changes{"seqNo": 5},
			check: func(t *testing.T, got Course) {
				if got.SeqNo != 5 {
					t.Errorf("SeqNo = %d, want 5", got.SeqNo)
				}
			},
		},
		{
			name:    "seqNo from decoded JSON",
			changes: Changes{"seqNo": float64(7)},
			check: func(t *testing.T, got Course) {
				if got.SeqNo != 7 {
					t.Errorf("SeqNo = %d, want 7", got.SeqNo)
				}
			},
		},
		{
			name:    "category",
			changes: Changes{"category": "ADVANCED"},
			check: func(t *testing.T, got Course) {
				if got.Category != "ADVANCED" {
					t.Errorf("Category = %q, want ADVANCED", got.Category)
				}
			},
		},
		{
			name:    "id is ignored",
			changes: Changes{"id": "other"},
			check: func(t *testing.T, got Course) {
				if got.ID != "c1" {
					t.Errorf("ID = %q, want c1", got.ID)
				}
			},
		},
		{
			name:    "opaque field merged",
			changes: Changes{"description": "new"},
			check: func(t *testing.T, got Course) {
				if got.Fields["description"] != "new" {
					t.Errorf("description = %v, want new", got.Fields["description"])
				}
				if got.Fields["lessonsCount"] != 10 {
					t.Errorf("lessonsCount = %v, want untouched 10", got.Fields["lessonsCount"])
				}
			},
		},
		{
			name:    "empty changes",
			changes: Changes{},
			check: func(t *testing.T, got Course) {
				if got.ID != base.ID || got.SeqNo != base.SeqNo || len(got.Fields) != len(base.Fields) {
					t.Errorf("got %+v, want copy of %+v", got, base)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base.Apply(tt.changes)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			tt.check(t, got)

			if base.Fields["description"] != "old" || base.SeqNo != 2 || base.Category != "BEGINNER" {
				t.Errorf("Apply mutated the receiver: %+v", base)
			}
		})
	}
}

func TestChanges_Validate(t *testing.T) {
	tests := []struct {
		name    string
		changes Changes
		wantErr bool
	}{
		{"nil", nil, false},
		{"int seqNo", Changes{"seqNo": 1}, false},
		{"json number seqNo", Changes{"seqNo": json.Number("4")}, false},
		{"string seqNo", Changes{"seqNo": "1"}, true},
		{"fractional seqNo", Changes{"seqNo": 1.25}, true},
		{"json number with zero fraction", Changes{"seqNo": json.Number("5.0")}, false},
		{"json number exponent", Changes{"seqNo": json.Number("1e2")}, false},
		{"json number beyond int range", Changes{"seqNo": json.Number("1e300")}, true},
		{"float beyond int range", Changes{"seqNo": 1e300}, true},
		{"fractional json number", Changes{"seqNo": json.Number("2.5")}, true},
		{"numeric category", Changes{"category": 3}, true},
		{"arbitrary field", Changes{"anything": []int{1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.changes.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidChanges) {
				t.Errorf("Validate() error = %v, want ErrInvalidChanges", err)
			}
		})
	}
}

func TestInCategory(t *testing.T) {
	courses := []Course{
		{ID: "a", Category: "X", SeqNo: 3},
		{ID: "b", Category: "Y", SeqNo: 1},
		{ID: "c", Category: "X", SeqNo: 1},
		{ID: "d", Category: "X", SeqNo: 3},
	}

	if got := ids(InCategory(courses, "X")); !slices.Equal(got, []string{"c", "a", "d"}) {
		t.Errorf("InCategory(X) = %v, want [c a d]", got)
	}
	if got := InCategory(courses, "Z"); len(got) != 0 {
		t.Errorf("InCategory(Z) = %v, want empty", got)
	}
	if got := InCategory(nil, "X"); got == nil || len(got) != 0 {
		t.Errorf("InCategory(nil) = %#v, want empty non-nil slice", got)
	}
}

// TestInCategory_Permutations checks the result against a grouping of the
// input by SeqNo for shuffled inputs.
func TestInCategory_Permutations(t *testing.T) {
	base := []Course{
		{ID: "1", Category: "A", SeqNo: 2},
		{ID: "2", Category: "A", SeqNo: 1},
		{ID: "3", Category: "B", SeqNo: 1},
		{ID: "4", Category: "A", SeqNo: 2},
		{ID: "5", Category: "A", SeqNo: 0},
		{ID: "6", Category: "B", SeqNo: 5},
		{ID: "7", Category: "A", SeqNo: -1},
		{ID: "8", Category: "A", SeqNo: 1},
	}

	for seed := int64(1); seed <= 25; seed++ {
		r := rand.New(rand.NewSource(seed))
		input := slices.Clone(base)
		r.Shuffle(len(input), func(i, j int) { input[i], input[j] = input[j], input[i] })

		for _, category := range []string{"A", "B", "C"} {
			got := ids(InCategory(input, category))
			want := ids(groupBySeqNo(input, category))
			if !slices.Equal(got, want) {
				t.Errorf("seed %d category %s: got %v, want %v", seed, category, got, want)
			}
		}
	}
}

// groupBySeqNo emits, for each distinct SeqNo in ascending order, the
// matching courses in input order.
func groupBySeqNo(input []Course, category string) []Course {
	var seqs []int
	for _, c := range input {
		if c.Category == category && !slices.Contains(seqs, c.SeqNo) {
			seqs = append(seqs, c.SeqNo)
		}
	}
	slices.Sort(seqs)

	var out []Course
	for _, seq := range seqs {
		for _, c := range input {
			if c.Category == category && c.SeqNo == seq {
				out = append(out, c)
			}
		}
	}
	return out
}

func TestError_Matching(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	loadErr := &Error{Kind: KindLoad, Message: LoadFailedMessage, CorrelationID: "abc", Cause: cause}
	saveErr := &Error{Kind: KindSave, Message: SaveFailedMessage, CourseID: "c1", CorrelationID: "def", Cause: cause}

	if !errors.Is(loadErr, ErrLoadFailed) || errors.Is(loadErr, ErrSaveFailed) {
		t.Error("load error matches the wrong sentinel")
	}
	if !errors.Is(saveErr, ErrSaveFailed) || errors.Is(saveErr, ErrLoadFailed) {
		t.Error("save error matches the wrong sentinel")
	}
	if !errors.Is(saveErr, cause) {
		t.Error("save error does not unwrap to its cause")
	}

	want := "Could not save course c1 (correlation_id: def): dial tcp: connection refused"
	if saveErr.Error() != want {
		t.Errorf("Error() = %q, want %q", saveErr.Error(), want)
	}
}
