// Package generator turns a contract into the virtual file tree of a REST-Assured
// and TestNG Maven project. All file contents come from the renderer; this package
// decides which files exist, where they live and what context each receives.
package generator

import (
	"fmt"
	"strings"

	"github.com/varnalabs/apitestgen/internal/diag"
	"github.com/varnalabs/apitestgen/internal/engineerr"
	"github.com/varnalabs/apitestgen/internal/model"
	"github.com/varnalabs/apitestgen/internal/render"
)

// Defaults for Options.
const (
	DefaultBasePackage   = "com.automation.tests"
	DefaultGroupID       = "com.automation"
	DefaultProjectSuffix = "-tests"
)

// Options configures the generated project layout.
type Options struct {
	BasePackage   string
	GroupID       string
	ProjectSuffix string
}

// DefaultOptions returns the stock layout.
func DefaultOptions() Options {
	return Options{
		BasePackage:   DefaultBasePackage,
		GroupID:       DefaultGroupID,
		ProjectSuffix: DefaultProjectSuffix,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if strings.TrimSpace(o.BasePackage) != "" {
		d.BasePackage = strings.TrimSpace(o.BasePackage)
	}
	if strings.TrimSpace(o.GroupID) != "" {
		d.GroupID = strings.TrimSpace(o.GroupID)
	}
	if o.ProjectSuffix != "" {
		d.ProjectSuffix = o.ProjectSuffix
	}
	return d
}

// Generator builds projects from contracts. It is stateless and safe for
// concurrent use as long as its Renderer is.
type Generator struct {
	r    render.Renderer
	opts Options
	log  *diag.Logger
}

// New returns a Generator rendering through r.
func New(r render.Renderer, log *diag.Logger, opts Options) *Generator {
	if log == nil {
		log = diag.Discard()
	}
	return &Generator{r: r, opts: opts.withDefaults(), log: log}
}

// Generate renders every project file for c. Renderer failures propagate unchanged;
// structural problems with the result are GenerationFailures.
func (g *Generator) Generate(c *model.Contract, correlationID string) (*model.Project, error) {
	log := g.log.With(correlationID)
	if c == nil {
		return nil, engineerr.Generation(nil, "generator: no contract")
	}
	if !ValidPackage(g.opts.BasePackage) {
		return nil, engineerr.Generation(nil, "generator: invalid base package %q", g.opts.BasePackage)
	}

	l := newLayout(g.opts.BasePackage)
	name := ProjectName(c.Title(), g.opts.ProjectSuffix)
	groups := groupEndpoints(c.Endpoints())
	assignClassNames(groups)

	var pending []pendingFile
	add := func(path string, id render.TemplateID, data any) error {
		content, err := g.r.Render(id, data)
		if err != nil {
			return err
		}
		pending = append(pending, pendingFile{path: path, content: content})
		return nil
	}

	if err := add("pom.xml", render.ProjectDescriptor, DescriptorContext{
		ProjectName: name,
		GroupID:     g.opts.GroupID,
		ArtifactID:  name,
		APITitle:    c.Title(),
		APIVersion:  c.Version(),
	}); err != nil {
		return nil, err
	}

	classes := make([]string, 0, len(groups))
	for _, grp := range groups {
		classes = append(classes, l.tests+"."+grp.class)
	}
	if err := add("testng.xml", render.SuiteConfiguration, SuiteContext{
		SuiteName:   c.Title() + " API Test Suite",
		TestName:    c.Title() + " Tests",
		TestClasses: classes,
	}); err != nil {
		return nil, err
	}

	if err := add(l.source(l.base, "BaseTest"), render.BaseFixture, FixtureContext{
		Package:    l.base,
		BaseURL:    c.BaseURL(),
		APITitle:   c.Title(),
		APIVersion: c.Version(),
	}); err != nil {
		return nil, err
	}

	for _, ns := range c.Schemas() {
		if !ns.Schema.IsObject() {
			log.Debugf("no model class for schema %q (%s)", ns.Name, ns.Schema.Kind())
			continue
		}
		mc := modelContext(l.model, ns.Name, ns.Schema)
		if err := add(l.source(l.model, mc.ClassName), render.DataModel, mc); err != nil {
			return nil, err
		}
	}

	for _, grp := range groups {
		tc := testClassContext(l, c, grp)
		if err := add(l.source(l.tests, tc.ClassName), render.TestClass, tc); err != nil {
			return nil, err
		}
	}

	p, err := assemble(name, pending)
	if err != nil {
		log.Errorf("assembly failed: %v", err)
		return nil, err
	}
	log.Infof("generated project %q: %d files, %d test classes", p.Name(), p.FileCount(), len(groups))
	return p, nil
}

type pendingFile struct {
	path    string
	content string
}

// assemble validates the rendered files and builds the project.
func assemble(name string, files []pendingFile) (*model.Project, error) {
	if len(files) == 0 {
		return nil, engineerr.Generation(model.ErrNoFiles, "generator: project %q has no files", name)
	}
	seen := make(map[string]struct{}, len(files))
	out := make([]model.File, 0, len(files))
	for _, pf := range files {
		if _, dup := seen[pf.path]; dup {
			return nil, engineerr.Generation(model.ErrDuplicatePath, "generator: duplicate file path %s", pf.path)
		}
		seen[pf.path] = struct{}{}
		f, err := model.NewFile(pf.path, pf.content)
		if err != nil {
			return nil, engineerr.Generation(err, "generator: %v", err)
		}
		out = append(out, f)
	}
	p, err := model.NewProject(name, out)
	if err != nil {
		return nil, engineerr.Generation(err, "generator: %v", err)
	}
	return p, nil
}

// layout holds the Java packages of the generated sources.
type layout struct {
	base, model, tests string
}

func newLayout(basePackage string) layout {
	return layout{
		base:  basePackage + ".base",
		model: basePackage + ".model",
		tests: basePackage + ".tests",
	}
}

func (layout) source(pkg, class string) string {
	return fmt.Sprintf("src/test/java/%s/%s.java", strings.ReplaceAll(pkg, ".", "/"), class)
}

type group struct {
	key       string
	class     string
	endpoints []model.Endpoint
}

// assignClassNames gives every group a test class name. Keys that collapse to the
// same name, such as "user-profiles" and "user_profiles", get numeric suffixes.
func assignClassNames(groups []group) {
	used := map[string]struct{}{}
	for i := range groups {
		groups[i].class = uniqueName(ClassName(groups[i].key), used) + "ApiTest"
	}
}

// groupEndpoints buckets endpoints by GroupKey, keeping first-seen group order.
func groupEndpoints(endpoints []model.Endpoint) []group {
	var out []group
	index := map[string]int{}
	for _, ep := range endpoints {
		k := GroupKey(ep.Path())
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, group{key: k})
		}
		out[i].endpoints = append(out[i].endpoints, ep)
	}
	return out
}

func modelContext(pkg, name string, s *model.Schema) ModelContext {
	mc := ModelContext{
		Package:     pkg,
		SchemaName:  name,
		ClassName:   ClassName(name),
		Description: s.Description(),
	}
	// Accessors must differ even where fields only differ in case, and getClass is
	// final on Object.
	fields := map[string]struct{}{}
	accessors := map[string]struct{}{"Class": {}}
	usesList := false
	for _, p := range s.Properties() {
		base := FieldName(p.Name)
		accessor := uniqueName(capitalise(base), accessors)
		field := uniqueName(base+strings.TrimPrefix(accessor, capitalise(base)), fields)
		jt := JavaType(p.Schema.Type())
		if p.Schema.Type() == model.TypeList {
			usesList = true
		}
		mc.Fields = append(mc.Fields, FieldContext{
			JSONName:    p.Name,
			Name:        field,
			Accessor:    accessor,
			JavaType:    jt,
			Description: p.Schema.Description(),
		})
	}
	if usesList {
		mc.Imports = append(mc.Imports, "java.util.List")
	}
	return mc
}

func testClassContext(l layout, c *model.Contract, grp group) TestClassContext {
	tc := TestClassContext{
		Package:      l.tests,
		BasePackage:  l.base,
		ClassName:    grp.class,
		ResourceName: grp.key,
		APITitle:     c.Title(),
		BaseURL:      c.BaseURL(),
	}
	used := map[string]struct{}{}
	for _, ep := range grp.endpoints {
		tc.Methods = append(tc.Methods, testMethodContext(ep, used))
	}
	return tc
}

func testMethodContext(ep model.Endpoint, used map[string]struct{}) TestMethodContext {
	status := "200"
	if ep.DeclaresStatus("201") {
		status = "201"
	}
	return TestMethodContext{
		Name:            uniqueName(TestMethodName(ep.OperationID()), used),
		OperationID:     ep.OperationID(),
		HTTPMethod:      strings.ToLower(string(ep.Method())),
		HTTPMethodUpper: string(ep.Method()),
		Path:            ep.Path(),
		Summary:         ep.Summary(),
		PathParams:      paramContexts(ep.ParametersIn(model.InPath)),
		QueryParams:     paramContexts(ep.ParametersIn(model.InQuery)),
		HasBody:         ep.HasRequestBody(),
		ExpectedStatus:  status,
	}
}

func paramContexts(params []model.Parameter) []ParamContext {
	out := make([]ParamContext, 0, len(params))
	for _, p := range params {
		out = append(out, ParamContext{
			Name:     p.Name(),
			JavaType: JavaType(p.Type()),
			Value:    Placeholder(p.Type()),
		})
	}
	return out
}
