package store

// SQL text lives here so call sites stay readable and statements are never
// duplicated. Window bounds for the gap queries are computed in Go and bound
// as plain timestamps.

const sqlHashExists = `
SELECT 1
FROM tournament_results
WHERE source_file_hash = $1
LIMIT 1`

const sqlInsertResult = `
INSERT INTO tournament_results (
    site, tournament_id, tournament_start_ts_local, hero_name,
    source_file_name, source_file_hash,
    tournament_name, game_type, player_count, currency,
    buy_in_amount, prize_pool_amount, payout_amount, profit_amount,
    finish_place,
    session_id, session_start_ts_local, session_tournament_index,
    imported_at, modified_at, notes
) VALUES (
    $1, $2, $3, $4,
    $5, $6,
    $7, $8, $9, $10,
    $11, $12, $13, $14,
    $15,
    $16, $17, $18,
    now(), NULL, NULL
)`

const sqlPrevWithinGap = `
SELECT session_id, session_start_ts_local
FROM tournament_results
WHERE site = $1
  AND tournament_start_ts_local <= $2
  AND tournament_start_ts_local >= $3
ORDER BY tournament_start_ts_local DESC
LIMIT 1`

const sqlNextWithinGap = `
SELECT session_id, session_start_ts_local
FROM tournament_results
WHERE site = $1
  AND tournament_start_ts_local >= $2
  AND tournament_start_ts_local <= $3
ORDER BY tournament_start_ts_local ASC
LIMIT 1`

const sqlCountMembersBefore = `
SELECT COUNT(*)
FROM tournament_results
WHERE site = $1
  AND session_id = $2
  AND tournament_start_ts_local < $3`

const sqlShiftIndexesFrom = `
UPDATE tournament_results
SET session_tournament_index = session_tournament_index + 1,
    modified_at = now(),
    notes = CASE
        WHEN notes IS NULL OR notes = '' THEN 'index_shifted'
        ELSE notes || ' | ' || 'index_shifted'
    END
WHERE site = $1
  AND session_id = $2
  AND tournament_start_ts_local >= $3`

const sqlMinSessionStart = `
SELECT MIN(tournament_start_ts_local)
FROM tournament_results
WHERE site = $1 AND session_id = $2`
