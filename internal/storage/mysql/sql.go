package mysql

const upsertCitySQL = `
INSERT INTO cities
  (slug, name, country, lat, lng,
   score_halal, score_food, score_community, score_cost, score_internet, score_safety, score_overall,
   muslim_population_percent, muslim_population, mosques, halal_restaurants, monthly_budget, internet_speed,
   airport_prayer_room, halal_hotels, islamic_banks, islamic_schools)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name                      = VALUES(name),
  country                   = VALUES(country),
  lat                       = VALUES(lat),
  lng                       = VALUES(lng),
  score_halal               = VALUES(score_halal),
  score_food                = VALUES(score_food),
  score_community           = VALUES(score_community),
  score_cost                = VALUES(score_cost),
  score_internet            = VALUES(score_internet),
  score_safety              = VALUES(score_safety),
  score_overall             = VALUES(score_overall),
  muslim_population_percent = VALUES(muslim_population_percent),
  muslim_population         = VALUES(muslim_population),
  mosques                   = VALUES(mosques),
  halal_restaurants         = VALUES(halal_restaurants),
  monthly_budget            = VALUES(monthly_budget),
  internet_speed            = VALUES(internet_speed),
  airport_prayer_room       = VALUES(airport_prayer_room),
  halal_hotels              = VALUES(halal_hotels),
  islamic_banks             = VALUES(islamic_banks),
  islamic_schools           = VALUES(islamic_schools),
  updated_at                = CURRENT_TIMESTAMP
`

const deletePlacesSQL = `DELETE FROM places WHERE city_slug = ?`

const insertPlacesPrefix = "INSERT INTO places\n  (id, city_slug, kind, name, address, lat, lng, cuisine, rating)\nVALUES "

const insertPlacesOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  name    = VALUES(name),\n" +
	"  address = VALUES(address),\n" +
	"  lat     = VALUES(lat),\n" +
	"  lng     = VALUES(lng),\n" +
	"  cuisine = VALUES(cuisine),\n" +
	"  rating  = VALUES(rating)\n"

const upsertListingSQL = `
INSERT INTO sponsored_listings
  (id, business_id, business_name, city_slug, type, tier, start_date, end_date, is_active, impressions, clicks)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  business_id   = VALUES(business_id),
  business_name = VALUES(business_name),
  city_slug     = VALUES(city_slug),
  type          = VALUES(type),
  tier          = VALUES(tier),
  start_date    = VALUES(start_date),
  end_date      = VALUES(end_date),
  is_active     = VALUES(is_active)
`

const insertMissSQL = `
INSERT INTO build_misses (slug, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), seen_at = CURRENT_TIMESTAMP
`

const upsertCounterSQL = `
INSERT INTO listing_counters (listing_id, impressions, clicks)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  impressions = impressions + VALUES(impressions),
  clicks      = clicks + VALUES(clicks)
`

const insertEventSQL = `
INSERT INTO listing_events (id, listing_id, kind, occurred_at)
VALUES (?, ?, ?, ?)
`

const insertAffiliateSQL = `
INSERT INTO affiliate_clicks (id, partner, category, city, country, url, occurred_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Store order is insertion order (seq); the query engine relies on it for ties.
const listCitiesSQL = `
SELECT
  slug, name, country, lat, lng,
  score_halal, score_food, score_community, score_cost, score_internet, score_safety, score_overall,
  muslim_population_percent, muslim_population, mosques, halal_restaurants, monthly_budget, internet_speed,
  airport_prayer_room, halal_hotels, islamic_banks, islamic_schools
FROM cities
ORDER BY seq
`

const listPlacesSQL = `
SELECT id, city_slug, kind, name, address, lat, lng, cuisine, rating
FROM places
ORDER BY city_slug, kind, name
`

const listListingsSQL = `
SELECT id, business_id, business_name, city_slug, type, tier, start_date, end_date, is_active, impressions, clicks
FROM sponsored_listings
ORDER BY seq
`

const getCounterSQL = `
SELECT impressions, clicks FROM listing_counters WHERE listing_id = ?
`
