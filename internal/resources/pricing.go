package resources

import "MaintBackOffice/internal/upload"

// CMC/NCMC price list, one document per part number.
func priceSchema() *upload.Schema {
	return &upload.Schema{
		Resource:   "cmc-ncmc-price",
		Label:      "CMC/NCMC Price",
		Collection: "cmcncmcprices",
		Fields: []upload.Field{
			{Name: "partNumber", Type: upload.TypeString, MaxLen: 100,
				Synonyms: []string{"part number", "part no", "part num", "part #", "pn", "part", "part code", "item code", "spare part no"}},
			{Name: "description", Type: upload.TypeString, MaxLen: 500, HasDefault: true,
				Synonyms: []string{"desc", "part description", "item description", "description of part"}},
			{Name: "product", Type: upload.TypeString, MaxLen: 150,
				Synonyms: []string{"product name", "model", "equipment", "product model"}},
			{Name: "cmcPrice", Type: upload.TypeNumber,
				Synonyms: []string{"cmc price", "cmc", "cmc rate", "cmc amount", "cmc price (rs)"}},
			{Name: "ncmcPrice", Type: upload.TypeNumber,
				Synonyms: []string{"ncmc price", "ncmc", "ncmc rate", "ncmc amount", "ncmc price (rs)"}},
			{Name: "remarks", Type: upload.TypeString, MaxLen: 1000, HasDefault: true,
				Synonyms: []string{"remark", "comments", "comment", "notes"}},
			{Name: upload.StatusField, Type: upload.TypeStatus, MaxLen: 50,
				Synonyms: []string{"state", "active status", "record status"}},
			{Name: upload.CreatedAtField, Type: upload.TypeTime, NoDiff: true,
				Synonyms: []string{"created at", "created date", "created on", "creation date"}},
		},
		Required:  []string{"partNumber", "cmcPrice", "ncmcPrice"},
		KeyFields: []string{"partNumber"},
		Echo:      []string{"partNumber", "product"},
		StrictCSV: true,
	}
}
