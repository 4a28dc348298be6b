package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "testdata/does-not-exist.toml")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Retrieval.ChunkSize != 1000 {
		t.Errorf("chunk size = %d, want 1000", cfg.Retrieval.ChunkSize)
	}
	if cfg.Retrieval.ChunkOverlap != 200 {
		t.Errorf("chunk overlap = %d, want 200", cfg.Retrieval.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("top k = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.BatchSize != 20 {
		t.Errorf("batch size = %d, want 20", cfg.Retrieval.BatchSize)
	}
	if cfg.HuggingFace.MaxNewTokens != 512 {
		t.Errorf("max new tokens = %d, want 512", cfg.HuggingFace.MaxNewTokens)
	}
	if cfg.HuggingFace.EmbeddingModel != "sentence-transformers/all-MiniLM-L6-v2" {
		t.Errorf("embedding model = %q", cfg.HuggingFace.EmbeddingModel)
	}
	if got := cfg.HTTPAddr(); got != "0.0.0.0:8080" {
		t.Errorf("http addr = %q", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "testdata/does-not-exist.toml")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RETRIEVAL_TOP_K", "5")
	t.Setenv("HUGGINGFACEHUB_API_TOKEN", "hf_test")
	t.Setenv("RETRIEVAL_PROVIDER", "local")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	if cfg.App.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.Port)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top k = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.HuggingFace.APIToken != "hf_test" {
		t.Errorf("api token = %q", cfg.HuggingFace.APIToken)
	}
	if cfg.Retrieval.Provider != "local" {
		t.Errorf("provider = %q, want local", cfg.Retrieval.Provider)
	}
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "svc"
	cfg.MySQL.Password = "pw"
	cfg.MySQL.Host = "db"
	cfg.MySQL.Port = 3307
	cfg.MySQL.DB = "docuchat"
	cfg.MySQL.Params = "parseTime=true"

	want := "svc:pw@tcp(db:3307)/docuchat?parseTime=true"
	if got := cfg.MySQLDSN(); got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}
