package workload

// Field is a single field of a space format.
type Field struct {
	Name string
	Type string
}

// Space describes a sharded space. Every space ends with a bucket_id field used by vshard.
type Space struct {
	Name   string
	Fields []Field
	// Field of the unique primary index
	Primary string
	// Fields that get a non-unique secondary index each
	Secondary []string
}

var (
	AccountsSpace = Space{
		Name: "ttbench_accounts",
		Fields: []Field{
			{Name: "aid", Type: "unsigned"},
			{Name: "abalance", Type: "unsigned"},
			{Name: "bucket_id", Type: "unsigned"},
		},
		Primary:   "aid",
		Secondary: []string{"abalance"},
	}
	TellersSpace = Space{
		Name: "ttbench_tellers",
		Fields: []Field{
			{Name: "tid", Type: "unsigned"},
			{Name: "tbalance", Type: "unsigned"},
			{Name: "bucket_id", Type: "unsigned"},
		},
		Primary:   "tid",
		Secondary: []string{"tbalance"},
	}
	BranchesSpace = Space{
		Name: "ttbench_branches",
		Fields: []Field{
			{Name: "bid", Type: "unsigned"},
			{Name: "bbalance", Type: "unsigned"},
			{Name: "bucket_id", Type: "unsigned"},
		},
		Primary:   "bid",
		Secondary: []string{"bbalance"},
	}
	HistorySpace = Space{
		Name: "ttbench_history",
		Fields: []Field{
			{Name: "uuid", Type: "string"},
			{Name: "tid", Type: "unsigned"},
			{Name: "bid", Type: "unsigned"},
			{Name: "aid", Type: "unsigned"},
			{Name: "delta", Type: "unsigned"},
			{Name: "time", Type: "unsigned"},
			{Name: "bucket_id", Type: "unsigned"},
		},
		Primary:   "uuid",
		Secondary: []string{"tid", "bid", "aid", "delta", "time"},
	}
)

// Spaces returns every space used by the benchmark, in creation order.
func Spaces() []Space {
	return []Space{AccountsSpace, TellersSpace, BranchesSpace, HistorySpace}
}

// balanceField returns the name of the second field, which holds the balance of accounts, tellers and branches.
func (s Space) balanceField() string {
	return s.Fields[1].Name
}

func (s Space) method(op string) string {
	return "box.space." + s.Name + ":" + op
}
