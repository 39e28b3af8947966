package database

// schema is applied statement by statement; the MySQL driver rejects multi-statement
// Exec unless multiStatements=true is set on the DSN.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    uid VARCHAR(128) NOT NULL UNIQUE,
    email VARCHAR(255) NOT NULL UNIQUE,
    name VARCHAR(255),
    phone VARCHAR(32),
    profile_picture_url VARCHAR(1024),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS submissions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    submission_uuid CHAR(36) NOT NULL,
    user_uid VARCHAR(128) NOT NULL,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    phone VARCHAR(32),
    age INT NOT NULL DEFAULT 0,
    poem_title VARCHAR(512) NOT NULL,
    poem_index INT NOT NULL DEFAULT 1,
    total_poems INT NOT NULL DEFAULT 1,
    tier VARCHAR(16) NOT NULL,
    price INT NOT NULL,
    discount_amount INT NOT NULL DEFAULT 0,
    coupon_code VARCHAR(64),
    payment_id VARCHAR(255) NOT NULL,
    payment_method VARCHAR(32) NOT NULL,
    poem_file_url VARCHAR(1024),
    photo_url VARCHAR(1024),
    contest_month CHAR(7) NOT NULL,
    score INT,
    type VARCHAR(64),
    status VARCHAR(32) NOT NULL DEFAULT 'Pending',
    score_breakdown JSON,
    is_winner TINYINT(1) NOT NULL DEFAULT 0,
    winner_position INT,
    winner_category VARCHAR(128),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_submissions_uuid (submission_uuid),
    INDEX idx_submissions_email (email),
    INDEX idx_submissions_month (contest_month)
)`,
	`CREATE TABLE IF NOT EXISTS free_tier_usage (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    usage_key VARCHAR(160) NOT NULL UNIQUE,
    submission_uuid CHAR(36) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS coupons (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    code VARCHAR(64) NOT NULL UNIQUE,
    discount_type VARCHAR(16) NOT NULL,
    discount_value INT NOT NULL,
    valid_from TIMESTAMP NULL,
    valid_until TIMESTAMP NULL,
    usage_limit INT NULL,
    used_count INT NOT NULL DEFAULT 0,
    applicable_tiers JSON,
    is_active TINYINT(1) NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS coupon_redemptions (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    coupon_id BIGINT NOT NULL,
    user_uid VARCHAR(128) NOT NULL,
    submission_uuid CHAR(36) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE KEY uniq_coupon_user (coupon_id, user_uid),
    FOREIGN KEY (coupon_id) REFERENCES coupons(id)
)`,
	`CREATE TABLE IF NOT EXISTS payments (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    provider VARCHAR(32) NOT NULL,
    reference VARCHAR(255) NOT NULL,
    submission_uuid CHAR(36) NOT NULL,
    amount INT NOT NULL,
    currency VARCHAR(8) NOT NULL,
    status VARCHAR(32) NOT NULL,
    raw_payload TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_payments_reference (provider, reference)
)`,
	`CREATE TABLE IF NOT EXISTS wall_posts (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    author_uid VARCHAR(128) NOT NULL,
    author_name VARCHAR(255) NOT NULL,
    author_email VARCHAR(255) NOT NULL,
    title VARCHAR(255) NOT NULL,
    content TEXT NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    likes INT NOT NULL DEFAULT 0,
    liked_by JSON,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    INDEX idx_wall_status (status)
)`,
	`CREATE TABLE IF NOT EXISTS winner_photos (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    image_url VARCHAR(1024) NOT NULL,
    contest_month CHAR(7) NOT NULL,
    position INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS settings (
    scope VARCHAR(16) NOT NULL,
    setting_key VARCHAR(128) NOT NULL,
    setting_value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (scope, setting_key)
)`,
	`CREATE TABLE IF NOT EXISTS contact_messages (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    email VARCHAR(255) NOT NULL,
    subject VARCHAR(255),
    message TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS outbox (
    id BIGINT AUTO_INCREMENT PRIMARY KEY,
    topic VARCHAR(64) NOT NULL,
    aggregate_id VARCHAR(64) NOT NULL,
    payload JSON NOT NULL,
    attempts INT NOT NULL DEFAULT 0,
    last_error TEXT,
    delivered_at TIMESTAMP NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_outbox_pending (delivered_at, created_at)
)`,
}
