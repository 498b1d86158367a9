package resources

import "MaintBackOffice/internal/upload"

// Reported problem catalog. A problem is identified by its catalog, code
// group, product group and name together.
func problemSchema() *upload.Schema {
	return &upload.Schema{
		Resource:   "reported-problems",
		Label:      "Reported Problem",
		Collection: "reportedproblems",
		Fields: []upload.Field{
			{Name: "catalog", Type: upload.TypeString, MaxLen: 100,
				Synonyms: []string{"catalogue", "catalog name", "catalog code", "catalogue name"}},
			{Name: "codegroup", Type: upload.TypeString, MaxLen: 100,
				Synonyms: []string{"code group", "code grp", "problem group", "group code"}},
			{Name: "prodgroup", Type: upload.TypeString, MaxLen: 100,
				Synonyms: []string{"prod group", "product group", "prod grp", "product"}},
			{Name: "name", Type: upload.TypeString, MaxLen: 200,
				Synonyms: []string{"problem name", "problem", "reported problem", "problem title"}},
			{Name: "description", Type: upload.TypeString, MaxLen: 1000, HasDefault: true,
				Synonyms: []string{"desc", "problem description", "details"}},
			{Name: upload.StatusField, Type: upload.TypeStatus, MaxLen: 50,
				Synonyms: []string{"state", "active status", "record status"}},
			{Name: upload.CreatedAtField, Type: upload.TypeTime, NoDiff: true,
				Synonyms: []string{"created at", "created date", "created on", "creation date"}},
		},
		Required:  []string{"catalog", "codegroup", "prodgroup", "name"},
		KeyFields: []string{"catalog", "codegroup", "prodgroup", "name"},
		Echo:      []string{"catalog", "codegroup", "prodgroup", "name"},
	}
}
