package connector

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
)

// Supported source drivers
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "pgx"
)

// DatabaseConnector handles the connection to the database a schema is read from
type DatabaseConnector struct {
	Driver   string
	Host     string
	User     string
	Password string
	Database string
	Port     string
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a new database connector. Empty parameters
// fall back to DDL_SOURCE_* environment variables, then to driver defaults.
func NewDatabaseConnector(driver, host, user, password, database, port string, logger *logrus.Logger) *DatabaseConnector {
	if driver == "" {
		driver = getEnvOrDefault("DDL_SOURCE_DRIVER", DriverMySQL)
	}
	if host == "" {
		host = getEnvOrDefault("DDL_SOURCE_HOST", "localhost")
	}
	if user == "" {
		user = getEnvOrDefault("DDL_SOURCE_USER", "root")
	}
	if password == "" {
		password = getEnvOrDefault("DDL_SOURCE_PASSWORD", "")
	}
	if database == "" {
		database = getEnvOrDefault("DDL_SOURCE_DATABASE", "")
	}
	if port == "" {
		port = getEnvOrDefault("DDL_SOURCE_PORT", DefaultPort(driver))
	}

	return &DatabaseConnector{
		Driver:   driver,
		Host:     host,
		User:     user,
		Password: password,
		Database: database,
		Port:     port,
		Logger:   logger,
	}
}

// DefaultPort returns the conventional port for a driver
func DefaultPort(driver string) string {
	if driver == DriverPostgres {
		return "5432"
	}
	return "3306"
}

// DSN builds the data source name for the configured driver
func (dc *DatabaseConnector) DSN() (string, error) {
	switch dc.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", dc.User, dc.Password, dc.Host, dc.Port, dc.Database), nil
	case DriverPostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dc.User, dc.Password, dc.Host, dc.Port, dc.Database), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", dc.Driver)
	}
}

// Connect establishes a connection to the source database
func (dc *DatabaseConnector) Connect() error {
	if dc.Database == "" {
		return fmt.Errorf("database name must be provided either as an argument or as DDL_SOURCE_DATABASE environment variable")
	}

	dsn, err := dc.DSN()
	if err != nil {
		return err
	}

	db, err := sql.Open(dc.Driver, dsn)
	if err != nil {
		dc.Logger.Errorf("Error connecting to %s database: %v", dc.Driver, err)
		return err
	}

	// Test the connection
	err = db.Ping()
	if err != nil {
		dc.Logger.Errorf("Error pinging %s database: %v", dc.Driver, err)
		db.Close()
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Connected to %s database: %s", dc.Driver, dc.Database)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Info("Database connection closed")
		}
	}
}

// ExecuteQuery executes a SQL query and returns the rows as column->value maps
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			// Text columns come back as []byte from the MySQL driver
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
