package fundamentals

import "testing"

func TestDatasets(t *testing.T) {
	names, err := Datasets()
	if err != nil {
		t.Fatalf("Datasets: %v", err)
	}
	want := []string{"reuters_financials", "sharadar_fundamentals"}
	if len(names) != len(want) {
		t.Fatalf("Datasets = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Datasets[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestColumns(t *testing.T) {
	cols, err := Columns("reuters_financials")
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) == 0 {
		t.Fatal("reuters_financials catalog is empty")
	}

	byName := make(map[string]string, len(cols))
	for _, c := range cols {
		if c.Name == "" || c.Description == "" {
			t.Errorf("incomplete column %+v", c)
		}
		if _, dup := byName[c.Name]; dup {
			t.Errorf("duplicate column %s", c.Name)
		}
		byName[c.Name] = c.Description
	}

	if got := byName["SREV"]; got != "Revenue" {
		t.Errorf("SREV = %q, want Revenue", got)
	}
	if got := byName["OTLO"]; got != "Cash from Operating Activities" {
		t.Errorf("OTLO = %q", got)
	}
}

func TestColumnsUnknownDataset(t *testing.T) {
	if _, err := Columns("no_such_dataset"); err == nil {
		t.Fatal("Columns of an unknown dataset should fail")
	}
}
