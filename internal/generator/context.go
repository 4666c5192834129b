package generator

// DescriptorContext feeds the Maven project descriptor (pom.xml).
type DescriptorContext struct {
	ProjectName string
	GroupID     string
	ArtifactID  string
	APITitle    string
	APIVersion  string
}

// SuiteContext feeds the TestNG suite configuration (testng.xml).
type SuiteContext struct {
	SuiteName string
	TestName  string
	// TestClasses are fully qualified, in group order.
	TestClasses []string
}

// FixtureContext feeds the shared BaseTest class.
type FixtureContext struct {
	Package    string
	BaseURL    string
	APITitle   string
	APIVersion string
}

// ModelContext feeds one data-model class.
type ModelContext struct {
	Package     string
	SchemaName  string
	ClassName   string
	Description string
	Imports     []string
	Fields      []FieldContext
}

// FieldContext is one property of a data-model class.
type FieldContext struct {
	// JSONName is the property name on the wire; Name is the Java field.
	JSONName    string
	Name        string
	Accessor    string
	JavaType    string
	Description string
}

// TestClassContext feeds one resource test class.
type TestClassContext struct {
	Package      string
	BasePackage  string
	ClassName    string
	ResourceName string
	APITitle     string
	BaseURL      string
	Methods      []TestMethodContext
}

// TestMethodContext is one @Test method, generated per endpoint.
type TestMethodContext struct {
	Name            string
	OperationID     string
	HTTPMethod      string
	HTTPMethodUpper string
	Path            string
	Summary         string
	PathParams      []ParamContext
	QueryParams     []ParamContext
	HasBody         bool
	ExpectedStatus  string
}

// ParamContext is a parameter with a placeholder literal for its type.
type ParamContext struct {
	Name     string
	JavaType string
	Value    string
}
