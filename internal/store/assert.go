package store

var (
	_ ArtifactStore = (*PostgresStore)(nil)
	_ ArtifactStore = (*FakeStore)(nil)
)
