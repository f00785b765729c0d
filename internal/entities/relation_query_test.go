package entities

import (
	"errors"
	"testing"
)

func TestRelationQuery_Validate(t *testing.T) {
	tests := []struct {
		name         string
		q            RelationQuery
		wantErr      bool
		wantNotFound bool
	}{
		{
			name:    "valid query",
			q:       NewRelationQuery("uses", "Team", true, "Teams"),
			wantErr: false,
		},
		{
			name:    "missing relation",
			q:            NewRelationQuery("", "Team", true, "Teams"),
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name:    "missing tag",
			q:            NewRelationQuery("uses", "", true, "Teams"),
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name:    "missing category",
			q:       NewRelationQuery("uses", "Team", false, ""),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("RelationQuery.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(RelationQuery.Validate(), ErrNotFound) = %v, want %v", got, tt.wantNotFound)
			}
		})
	}
}

func TestRelationQuery_String(t *testing.T) {
	tests := []struct {
		name string
		q    RelationQuery
		want string
	}{
		{
			name: "forward",
			q:    NewRelationQuery("part_of", "Hardware", false, "Hardware"),
			want: "part_of->#Hardware@Hardware",
		},
		{
			name: "reverse",
			q:    NewRelationQuery("uses", "Team", true, "Teams"),
			want: "uses<-#Team@Teams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.String(); got != tt.want {
				t.Errorf("RelationQuery.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluationResult_Category(t *testing.T) {
	result := EvaluationResult{"Teams": {1, 2}}

	if got := result.Category("Teams"); len(got) != 2 {
		t.Errorf("Category(Teams) = %v, want 2 IDs", got)
	}
	got := result.Category("Missing")
	if got == nil || len(got) != 0 {
		t.Errorf("Category(Missing) = %v, want empty non-nil slice", got)
	}
}
