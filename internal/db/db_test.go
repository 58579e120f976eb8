package db

import (
	"strings"
	"testing"

	"github.com/shinyyama/farmmarket-backend/internal/config"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			"mysql tcp",
			config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "farm"},
			"u:p@tcp(db:3306)/farm?",
		},
		{
			"mysql cloud sql",
			config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", InstanceConnectionName: "proj:reg:inst", DBName: "farm"},
			"u:p@unix(/cloudsql/proj:reg:inst)/farm?",
		},
		{
			"mysql socket path",
			config.Config{DBDriver: "mysql", DBUser: "u", DBPassword: "p", DBHost: "/var/run/mysqld.sock", DBName: "farm"},
			"u:p@unix(/var/run/mysqld.sock)/farm?",
		},
		{
			"postgres default port",
			config.Config{DBDriver: "postgres", DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "3306", DBName: "farm"},
			"host=db user=u password=p dbname=farm port=5432",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildDSN(&tt.cfg)
			if !strings.HasPrefix(got, tt.want) {
				t.Fatalf("got=%q want prefix %q", got, tt.want)
			}
		})
	}
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	if _, err := dialector(&config.Config{DBDriver: "oracle"}); err == nil {
		t.Fatal("expected error")
	}
}
