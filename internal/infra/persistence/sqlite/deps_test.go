package sqlite

import (
	"go/build"
	"strings"
	"testing"
)

var allowedInternalImports = map[string]struct{}{
	"plantcare/pkg/domain":                          {},
	"plantcare/internal/infra/persistence/sqlstore": {},
}

func TestImportsAreDomainOrSQLStore(t *testing.T) {
	pkg, err := build.Default.ImportDir(".", 0)
	if err != nil {
		t.Fatalf("import dir: %v", err)
	}
	for _, imp := range pkg.Imports {
		if !strings.HasPrefix(imp, "plantcare/") {
			continue
		}
		if _, ok := allowedInternalImports[imp]; !ok {
			t.Fatalf("sqlite store must not import %s", imp)
		}
	}
}
