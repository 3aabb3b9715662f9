package store

func NewStore(storeType string, connectionString string) (Store, error) {
	switch storeType {
	case "postgres", "postgresql":
		return NewPostgresStore(connectionString), nil
	case "mysql":
		return NewMySQLStore(connectionString), nil
	case "mongo", "mongodb":
		return NewMongoStore(connectionString), nil
	default:
		return nil, ErrUnsupportedStore
	}
}
