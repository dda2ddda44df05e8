// Package discover finds many-to-many association declarations in Go
// model files. A slice field tagged
//
//	Doctors []Doctor `rel:"many_through,through:hospital_doctors,foreign_key:hospital_id,references:doctor_id"`
//
// declares the association "doctors" on the host struct's table.
package discover

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mickamy/manythrough/internal/naming"
	"github.com/mickamy/manythrough/through"
)

const relManyThrough = "many_through"

// Model holds what Parse learned about one struct.
type Model struct {
	Name         string // Go struct name, e.g. "Hospital"
	Package      string // Package name, e.g. "model"
	Table        string // TableName() result if declared, else derived from Name
	PrimaryKey   string // primary key column
	Associations []through.Declaration
}

// Parse reads the Go file at path and returns a Model for every struct in
// it. Associations whose target struct lives in the same file get its
// table name and primary key column.
func Parse(filePath string) ([]*Model, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	pkg := file.Name.Name
	tableNames := tableNameMethods(file)

	var models []*Model
	var parseErr error
	ast.Inspect(file, func(n ast.Node) bool {
		if parseErr != nil {
			return false
		}
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}

		m := &Model{
			Name:       ts.Name.Name,
			Package:    pkg,
			Table:      naming.TableName(ts.Name.Name),
			PrimaryKey: "id",
		}
		if name, ok := tableNames[m.Name]; ok {
			m.Table = name
		}
		for _, field := range st.Fields.List {
			if err := m.addField(field); err != nil {
				parseErr = fmt.Errorf("%s: %w", m.Name, err)
				return false
			}
		}
		models = append(models, m)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	resolveTargets(models)
	return models, nil
}

// Declarations flattens the associations of every model, in file order.
func Declarations(models []*Model) []through.Declaration {
	var decls []through.Declaration
	for _, m := range models {
		decls = append(decls, m.Associations...)
	}
	return decls
}

// Render writes decls as a YAML document with a top-level "associations"
// list, the format internal/config reads.
func Render(w io.Writer, decls []through.Declaration) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc := struct {
		Associations []through.Declaration `yaml:"associations"`
	}{Associations: decls}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close() //nolint:wrapcheck // flush only
}

func (m *Model) addField(field *ast.Field) error {
	if len(field.Names) == 0 || !field.Names[0].IsExported() {
		return nil // embedded or unexported
	}
	name := field.Names[0].Name

	var tag reflect.StructTag
	if field.Tag != nil {
		tag = reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
	}

	if dbTag, ok := tag.Lookup("db"); ok && dbTag != "-" {
		parts := strings.Split(dbTag, ",")
		for _, opt := range parts[1:] {
			if opt == "primaryKey" {
				m.PrimaryKey = parts[0]
				if m.PrimaryKey == "" {
					m.PrimaryKey = naming.CamelToSnake(name)
				}
			}
		}
	}

	relTag, ok := tag.Lookup("rel")
	if !ok {
		return nil
	}
	parts := strings.Split(relTag, ",")
	if strings.TrimSpace(parts[0]) != relManyThrough {
		return nil
	}

	decl := through.Declaration{
		Host: m.Table,
		Name: naming.CamelToSnake(name),
	}
	if elem := sliceElem(field.Type); elem != "" {
		decl.Target = naming.TableName(elem)
	}
	for _, opt := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(opt), ":")
		switch key {
		case "through":
			decl.Through = value
		case "foreign_key":
			decl.HostForeignKey = value
		case "references":
			decl.TargetForeignKey = value
		case "target":
			decl.Target = value
		case "join_primary_key":
			decl.JoinPrimaryKey = value
		case "":
		default:
			return fmt.Errorf("field %s: unknown rel option %q", name, key)
		}
	}
	if decl.Through == "" {
		return fmt.Errorf("field %s: %w: many_through needs a through option", name, through.ErrConfiguration)
	}
	m.Associations = append(m.Associations, decl)
	return nil
}

// resolveTargets fills target tables and primary keys from models declared
// in the same file.
func resolveTargets(models []*Model) {
	byTable := make(map[string]*Model, len(models))
	for _, m := range models {
		byTable[naming.TableName(m.Name)] = m
	}
	for _, m := range models {
		for i := range m.Associations {
			decl := &m.Associations[i]
			target, ok := byTable[decl.Target]
			if !ok {
				continue
			}
			decl.Target = target.Table
			if target.PrimaryKey != "id" {
				decl.TargetPrimaryKey = target.PrimaryKey
			}
		}
	}
}

// tableNameMethods collects `func (T) TableName() string { return "..." }`
// declarations keyed by receiver type name.
func tableNameMethods(file *ast.File) map[string]string {
	names := map[string]string{}
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || fn.Name.Name != "TableName" || fn.Body == nil || len(fn.Body.List) != 1 {
			continue
		}
		ret, ok := fn.Body.List[0].(*ast.ReturnStmt)
		if !ok || len(ret.Results) != 1 {
			continue
		}
		lit, ok := ret.Results[0].(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			continue
		}
		value, err := strconv.Unquote(lit.Value)
		if err != nil {
			continue
		}
		if recv := receiverName(fn.Recv.List[0].Type); recv != "" {
			names[recv] = value
		}
	}
	return names
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	default:
		return ""
	}
}

// sliceElem returns the element type name of []T, []*T or []pkg.T.
func sliceElem(expr ast.Expr) string {
	arr, ok := expr.(*ast.ArrayType)
	if !ok || arr.Len != nil {
		return ""
	}
	elt := arr.Elt
	if star, ok := elt.(*ast.StarExpr); ok {
		elt = star.X
	}
	switch t := elt.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	default:
		return ""
	}
}
