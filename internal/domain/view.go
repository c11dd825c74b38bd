package domain

// GeometryDescriptor describes the geometry column of a virtual view.
type GeometryDescriptor struct {
	Name string
	Type string
	SRID int
}

// ViewParameter is a named substitution in a view query. Validator is a
// regular expression the map server applies to supplied values.
type ViewParameter struct {
	Name         string
	DefaultValue string
	Validator    string
}

// ViewDefinition is a named, declaratively created map-server layer. A view
// without SQL publishes the table of the same name.
type ViewDefinition struct {
	Name       string
	SQL        string
	Geometry   *GeometryDescriptor
	Parameters []ViewParameter
}

// IsVirtual reports whether the view is backed by a SQL query.
func (v ViewDefinition) IsVirtual() bool {
	return v.SQL != ""
}

// WorkspaceViews groups the views published in one workspace/datastore.
type WorkspaceViews struct {
	Workspace string
	DataStore string
	Views     []ViewDefinition
}
