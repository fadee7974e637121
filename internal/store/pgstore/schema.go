package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema matches the tables gormstore migrates, so either store can serve the
// same database.
const Schema = `
create table if not exists wallets (
	id text primary key,
	owner_type varchar(32) not null,
	owner_id varchar(128) not null,
	distributor_id varchar(128) not null,
	balance numeric(20,2) not null constraint chk_wallets_balance check (balance >= 0),
	is_active boolean not null,
	version bigint not null,
	created_at timestamptz not null,
	updated_at timestamptz not null
);
create unique index if not exists uniq_wallets_owner on wallets(owner_type, owner_id);
create index if not exists idx_wallets_distributor on wallets(distributor_id);

create table if not exists wallet_transactions (
	id text primary key,
	wallet_id varchar(64) not null,
	type varchar(32) not null,
	amount numeric(20,2) not null,
	balance_before numeric(20,2) not null,
	balance_after numeric(20,2) not null,
	counterparty_wallet_id varchar(64),
	description text not null,
	reference_type varchar(32) not null,
	reference_id varchar(128) not null,
	idempotency_key varchar(255) not null,
	initiated_by varchar(128) not null,
	metadata jsonb not null,
	created_at timestamptz not null,
	created_at_ns bigint not null
);
create unique index if not exists uniq_wallet_transactions_idem on wallet_transactions(wallet_id, idempotency_key);
create index if not exists idx_wallet_transactions_wallet_created on wallet_transactions(wallet_id, created_at_ns);
create index if not exists idx_wallet_transactions_counterparty on wallet_transactions(counterparty_wallet_id);
create index if not exists idx_wallet_transactions_reference on wallet_transactions(reference_type, reference_id);
create index if not exists idx_wallet_transactions_idem on wallet_transactions(idempotency_key);

create table if not exists field_collections (
	id varchar(128) primary key,
	wallet_id varchar(64) not null,
	owner_type varchar(32) not null,
	owner_id varchar(128) not null,
	shop_id varchar(128) not null,
	amount numeric(20,2) not null,
	outstanding numeric(20,2) not null,
	status varchar(16) not null,
	description text not null,
	credit_transaction_id varchar(64) not null,
	collected_at timestamptz not null,
	collected_at_ns bigint not null,
	created_at timestamptz not null,
	created_at_ns bigint not null,
	updated_at timestamptz not null
);
create index if not exists idx_field_collections_wallet_collected on field_collections(wallet_id, collected_at_ns);
create index if not exists idx_field_collections_status on field_collections(status);

create table if not exists collection_trail_entries (
	id varchar(64) primary key,
	transaction_id varchar(64) not null,
	position integer not null,
	collection_id varchar(128) not null,
	shop_id varchar(128) not null,
	amount_applied numeric(20,2) not null,
	status varchar(16) not null,
	created_at timestamptz not null
);
create index if not exists idx_trail_entries_transaction on collection_trail_entries(transaction_id, position);
create index if not exists idx_trail_entries_collection on collection_trail_entries(collection_id);
`

// EnsureSchema creates any missing table or index.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return wrapStoreError("schema", "migrate", err)
	}
	return nil
}
