package entities

import "testing"

func TestRelation_String(t *testing.T) {
	tests := []struct {
		name string
		r    Relation
		want string
	}{
		{
			name: "simple relation",
			r:    Relation{ID: 1, RelationTypeID: 2, FromID: 3, ToID: 5},
			want: "relation_type:2(entry:3 -> entry:5)",
		},
		{
			name: "self loop",
			r:    Relation{ID: 9, RelationTypeID: 1, FromID: 7, ToID: 7},
			want: "relation_type:1(entry:7 -> entry:7)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.String(); got != tt.want {
				t.Errorf("Relation.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRelation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Relation
		wantErr bool
	}{
		{
			name:    "valid relation",
			r:       Relation{RelationTypeID: 1, FromID: 2, ToID: 3},
			wantErr: false,
		},
		{
			name:    "missing relation type",
			r:       Relation{FromID: 2, ToID: 3},
			wantErr: true,
		},
		{
			name:    "missing from",
			r:       Relation{RelationTypeID: 1, ToID: 3},
			wantErr: true,
		},
		{
			name:    "missing to",
			r:       Relation{RelationTypeID: 1, FromID: 2},
			wantErr: true,
		},
		{
			name:    "negative IDs",
			r:       Relation{RelationTypeID: -1, FromID: -2, ToID: -3},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Relation.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRelation_Neighbour(t *testing.T) {
	r := Relation{RelationTypeID: 1, FromID: 10, ToID: 20}

	if got := r.Neighbour(false); got != 20 {
		t.Errorf("Neighbour(false) = %d, want 20", got)
	}
	if got := r.Neighbour(true); got != 10 {
		t.Errorf("Neighbour(true) = %d, want 10", got)
	}
}
