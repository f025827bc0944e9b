package filter

import "testing"

func TestCompileRejectsUnknownLeaderSlot(t *testing.T) {
	_, err := Compile(`ldr.nonsense == "x"`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for an unknown leader slot")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("expected a *ParseError, got %T: %v", err, err)
	}
}

func TestCompileRejectsRelationalOnString(t *testing.T) {
	_, err := Compile(`001 > "x"`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for '>' against a non-numeric selector")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Errorf("expected a *TypeError, got %T: %v", err, err)
	}
}

func TestCompileRejectsNumericLiteralAgainstString(t *testing.T) {
	_, err := Compile(`001 == 5`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for a numeric literal against a byte-string selector")
	}
	if _, ok := err.(*TypeError); !ok {
		t.Errorf("expected a *TypeError, got %T: %v", err, err)
	}
}

func TestCompileRejectsInvalidRegex(t *testing.T) {
	_, err := Compile(`001 =~ "("`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for an invalid regular expression")
	}
	if _, ok := err.(*RegexErr); !ok {
		t.Errorf("expected a *RegexErr, got %T: %v", err, err)
	}
}

func TestCompileRejectsMalformedTagPattern(t *testing.T) {
	_, err := Compile(`10x?`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for a malformed tag pattern")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("expected a *ParseError, got %T: %v", err, err)
	}
}

func TestCompileRejectsTrailingGarbage(t *testing.T) {
	_, err := Compile(`001 == "x" )`, CompileOptions{})
	if err == nil {
		t.Fatal("expected an error for trailing unparsed input")
	}
}

func TestCompileDefaultsSimilarityThreshold(t *testing.T) {
	expr, err := Compile(`001 =* "x"`, CompileOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cmp, ok := expr.root.(compareNode)
	if !ok {
		t.Fatalf("expected root to be a compareNode, got %T", expr.root)
	}
	if cmp.threshold != DefaultSimilarityThreshold {
		t.Errorf("threshold = %v, want default %v", cmp.threshold, DefaultSimilarityThreshold)
	}
}
