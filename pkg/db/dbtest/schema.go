package dbtest

// SQLite renditions of the goose migrations. Postgres enums become text and
// uuid columns have no default, so repositories must assign ids themselves.
const (
	UsersDDL = `CREATE TABLE users (
		id text PRIMARY KEY,
		email text NOT NULL UNIQUE COLLATE NOCASE,
		password_hash text NOT NULL,
		full_name text NOT NULL,
		phone text,
		role text NOT NULL DEFAULT 'customer',
		email_confirmed_at datetime,
		last_login_at datetime,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`

	FarmsDDL = `CREATE TABLE farms (
		id text PRIMARY KEY,
		farmer_id text NOT NULL,
		name text NOT NULL,
		description text,
		location text NOT NULL,
		latitude real,
		longitude real,
		image_url text,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`

	ProductsDDL = `CREATE TABLE products (
		id text PRIMARY KEY,
		farmer_id text NOT NULL,
		farm_id text,
		name text NOT NULL,
		description text,
		price_cents integer NOT NULL,
		unit text NOT NULL,
		category text NOT NULL,
		images text NOT NULL DEFAULT '[]',
		is_organic boolean NOT NULL DEFAULT 0,
		is_featured boolean NOT NULL DEFAULT 0,
		quantity integer NOT NULL DEFAULT 0,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`

	OrdersDDL = `CREATE TABLE orders (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		customer_name text NOT NULL,
		customer_email text NOT NULL,
		phone text NOT NULL,
		subtotal_cents integer NOT NULL,
		delivery_fee_cents integer NOT NULL,
		tip_cents integer NOT NULL DEFAULT 0,
		discount_cents integer NOT NULL DEFAULT 0,
		total_cents integer NOT NULL,
		currency text NOT NULL DEFAULT 'ZAR',
		status text NOT NULL DEFAULT 'pending',
		payment_status text NOT NULL DEFAULT 'pending',
		payment_method text NOT NULL,
		payment_reference text,
		promo_code text,
		delivery_slot text,
		gift_wrap_style text,
		shipping_address text NOT NULL,
		delivery_instructions text,
		paid_at datetime,
		stock_reserved boolean NOT NULL DEFAULT 1,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`

	OrderItemsDDL = `CREATE TABLE order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		product_id text NOT NULL,
		farmer_id text NOT NULL,
		product_name text NOT NULL,
		category text NOT NULL,
		unit text NOT NULL,
		quantity integer NOT NULL CHECK (quantity > 0),
		unit_price_cents integer NOT NULL,
		line_total_cents integer NOT NULL,
		created_at datetime NOT NULL
	)`

	ReviewsDDL = `CREATE TABLE reviews (
		id text PRIMARY KEY,
		product_id text NOT NULL,
		user_id text NOT NULL,
		rating integer NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment text,
		created_at datetime NOT NULL,
		UNIQUE (product_id, user_id)
	)`

	ChatsDDL = `CREATE TABLE chats (
		id text PRIMARY KEY,
		customer_id text NOT NULL,
		farmer_id text NOT NULL,
		last_message_at datetime,
		created_at datetime NOT NULL,
		UNIQUE (customer_id, farmer_id)
	)`

	MessagesDDL = `CREATE TABLE messages (
		id text PRIMARY KEY,
		chat_id text NOT NULL,
		sender_id text NOT NULL,
		body text NOT NULL,
		read_at datetime,
		created_at datetime NOT NULL
	)`

	NotificationsDDL = `CREATE TABLE notifications (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		type text NOT NULL,
		title text NOT NULL,
		message text NOT NULL,
		link text,
		read_at datetime,
		created_at datetime NOT NULL
	)`

	OutboxEventsDDL = `CREATE TABLE outbox_events (
		id text PRIMARY KEY,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload text NOT NULL,
		created_at datetime NOT NULL,
		published_at datetime,
		attempt_count integer NOT NULL DEFAULT 0,
		last_error text
	)`

	OutboxDLQDDL = `CREATE TABLE outbox_dlq (
		id text PRIMARY KEY,
		event_id text NOT NULL,
		event_type text NOT NULL,
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		payload text NOT NULL,
		error_reason text NOT NULL,
		error_message text,
		attempt_count integer NOT NULL DEFAULT 0,
		failed_at datetime NOT NULL,
		created_at datetime NOT NULL
	)`

	OutboxOrderPaidIndexDDL = `CREATE UNIQUE INDEX ux_outbox_events_order_paid ON outbox_events (aggregate_id) WHERE event_type = 'order.paid'`
)

// Schema lists every table in dependency order.
func Schema() []string {
	return []string{
		UsersDDL,
		FarmsDDL,
		ProductsDDL,
		OrdersDDL,
		OrderItemsDDL,
		ReviewsDDL,
		ChatsDDL,
		MessagesDDL,
		NotificationsDDL,
		OutboxEventsDDL,
		OutboxOrderPaidIndexDDL,
		OutboxDLQDDL,
	}
}
