package partition

// queryListPartitions resolves the current children of a parent table.
// $1 is the parent relname.
const queryListPartitions = `
	SELECT
		cn.nspname AS partition_schema,
		c.relname AS partition_name,
		pn.nspname AS parent_schema,
		COALESCE(pg_get_expr(c.relpartbound, c.oid)::text, '') AS partition_bound
	FROM pg_inherits i
	JOIN pg_class c ON c.oid = i.inhrelid
	JOIN pg_namespace cn ON cn.oid = c.relnamespace
	JOIN pg_class p ON p.oid = i.inhparent
	JOIN pg_namespace pn ON pn.oid = p.relnamespace
	WHERE p.relname = $1
	ORDER BY pg_get_expr(c.relpartbound, c.oid)::text`
