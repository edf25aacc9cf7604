package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gowvp/sentinel/internal/conf"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
)

func TestGetDialector(t *testing.T) {
	if d, ok := getDialector("postgres://u:p@127.0.0.1:5432/sentinel"); ok {
		t.Fatal("postgres is not sqlite")
	} else if _, is := d.(*postgres.Dialector); !is {
		t.Fatalf("got %T", d)
	}
	if d, ok := getDialector("mysql://u:p@tcp(127.0.0.1:3306)/sentinel"); ok {
		t.Fatal("mysql is not sqlite")
	} else if _, is := d.(*mysql.Dialector); !is {
		t.Fatalf("got %T", d)
	}
	if d, ok := getDialector("configs/data.db"); !ok {
		t.Fatal("expected sqlite")
	} else if _, is := d.(*sqlite.Dialector); !is {
		t.Fatalf("got %T", d)
	}
}

func TestSetupDBSQLite(t *testing.T) {
	bc := conf.DefaultConfig()
	bc.Data.Database.Dsn = filepath.Join(t.TempDir(), "data.db")
	db, cleanup, err := SetupDB(&bc)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if err := db.Exec("SELECT 1").Error; err != nil {
		t.Fatal(err)
	}
}
