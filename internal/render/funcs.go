package render

import (
	"strings"
	"text/template"
)

var (
	javaStringReplacer = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	xmlReplacer        = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		// javaString escapes s for use inside a Java string literal.
		"javaString": javaStringReplacer.Replace,
		"xml":        xmlReplacer.Replace,
		// javadoc keeps s on one line and prevents it from closing the comment.
		"javadoc": func(s string) string {
			s = strings.Join(strings.Fields(s), " ")
			return strings.ReplaceAll(s, "*/", "*&#47;")
		},
	}
}
