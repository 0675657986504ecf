package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/meridian-pos/meridian-pos/internal/app"
	"github.com/meridian-pos/meridian-pos/internal/platform/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	unit        TEXT NOT NULL DEFAULT 'pcs',
	cost_price  NUMERIC NOT NULL DEFAULT 0,
	sale_price  NUMERIC NOT NULL DEFAULT 0,
	is_active   BOOLEAN NOT NULL DEFAULT TRUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS documents (
	id             BIGSERIAL PRIMARY KEY,
	code           TEXT NOT NULL CONSTRAINT documents_code_key UNIQUE,
	kind           TEXT NOT NULL CHECK (kind IN ('SALE', 'PURCHASE')),
	party_id       BIGINT,
	total_amount   NUMERIC NOT NULL DEFAULT 0,
	discount_type  TEXT NOT NULL DEFAULT 'AMOUNT',
	discount_value NUMERIC NOT NULL DEFAULT 0,
	other_fee      NUMERIC NOT NULL DEFAULT 0,
	payment_method TEXT,
	paid_amount    NUMERIC NOT NULL DEFAULT 0,
	note           TEXT,
	status         TEXT NOT NULL DEFAULT 'COMPLETED',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS document_items (
	id           BIGSERIAL PRIMARY KEY,
	document_id  BIGINT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	product_id   BIGINT NOT NULL REFERENCES products(id),
	quantity     NUMERIC NOT NULL,
	unit_price   NUMERIC NOT NULL DEFAULT 0,
	discount     NUMERIC NOT NULL DEFAULT 0,
	total_amount NUMERIC NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS inventory_transactions (
	id             BIGSERIAL PRIMARY KEY,
	product_id     BIGINT NOT NULL REFERENCES products(id),
	type           TEXT NOT NULL CHECK (type IN ('IN', 'OUT')),
	quantity       NUMERIC NOT NULL,
	unit_cost      NUMERIC,
	reference_type TEXT NOT NULL CHECK (reference_type IN ('PURCHASE', 'SALE')),
	reference_id   BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_inventory_tx_product
	ON inventory_transactions (product_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_inventory_tx_reference
	ON inventory_transactions (reference_type, reference_id);
CREATE INDEX IF NOT EXISTS idx_document_items_document
	ON document_items (document_id);
`

type seedProduct struct {
	code      string
	name      string
	unit      string
	costPrice float64
	salePrice float64
}

var seedProducts = []seedProduct{
	{"SP0001", "Nuoc suoi Lavie 500ml", "chai", 3500, 6000},
	{"SP0002", "Mi Hao Hao tom chua cay", "goi", 3200, 5000},
	{"SP0003", "Ca phe G7 hop 18 goi", "hop", 38000, 52000},
	{"SP0004", "Sua tuoi Vinamilk 1L", "hop", 28000, 36000},
	{"SP0005", "Banh Oreo 137g", "goi", 9500, 15000},
}

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema applied")

	for _, p := range seedProducts {
		_, err := pool.Exec(ctx, `
INSERT INTO products (code, name, unit, cost_price, sale_price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (code) DO NOTHING`, p.code, p.name, p.unit, p.costPrice, p.salePrice)
		if err != nil {
			logger.Error("seed product", slog.String("code", p.code), slog.Any("error", err))
			os.Exit(1)
		}
	}
	logger.Info("seed products inserted", slog.Int("count", len(seedProducts)))
}
