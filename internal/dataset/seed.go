package dataset

// seedStatements is the built-in sample dataset: two continents, four
// regions and a handful of countries with shared rivers and mountains.
var seedStatements = []struct {
	sql  string
	args []any
}{
	{"INSERT INTO continent (id, name) VALUES (?, ?)", []any{1, "America"}},
	{"INSERT INTO continent (id, name) VALUES (?, ?)", []any{2, "Asia"}},

	{"INSERT INTO region (id, name, continent_id) VALUES (?, ?, ?)", []any{1, "Northern America", 1}},
	{"INSERT INTO region (id, name, continent_id) VALUES (?, ?, ?)", []any{2, "South America", 1}},
	{"INSERT INTO region (id, name, continent_id) VALUES (?, ?, ?)", []any{3, "Eastern Asia", 2}},
	{"INSERT INTO region (id, name, continent_id) VALUES (?, ?, ?)", []any{4, "Southern Asia", 2}},

	{
		"INSERT INTO country (id, name, area, population, region_id) VALUES (?, ?, ?, ?, ?)",
		[]any{1, "United States", 9833517, 331002651, 1},
	},
	{
		"INSERT INTO country (id, name, area, population, region_id) VALUES (?, ?, ?, ?, ?)",
		[]any{2, "Canada", 9984670, 37742154, 1},
	},
	{
		"INSERT INTO country (id, name, area, population, region_id) VALUES (?, ?, ?, ?, ?)",
		[]any{3, "Brazil", 8515767, 212559417, 2},
	},
	{
		"INSERT INTO country (id, name, area, population, region_id) VALUES (?, ?, ?, ?, ?)",
		[]any{4, "China", 9596961, 1439323776, 3},
	},
	{
		"INSERT INTO country (id, name, area, population, region_id) VALUES (?, ?, ?, ?, ?)",
		[]any{5, "India", 3287263, 1380004385, 4},
	},

	{"INSERT INTO river (id, name, discharge, length) VALUES (?, ?, ?, ?)", []any{1, "Mississippi", 16792, 3730}},
	{"INSERT INTO river (id, name, discharge, length) VALUES (?, ?, ?, ?)", []any{2, "Amazon", 209000, 6992}},
	{"INSERT INTO river (id, name, discharge, length) VALUES (?, ?, ?, ?)", []any{3, "Yangtze", 30166, 6300}},
	{"INSERT INTO river (id, name, discharge, length) VALUES (?, ?, ?, ?)", []any{4, "Ganges", 38129, 2510}},
	{"INSERT INTO river (id, name, discharge, length) VALUES (?, ?, NULL, ?)", []any{5, "Yukon", 3190}},

	{"INSERT INTO mountain (id, name, height) VALUES (?, ?, ?)", []any{1, "Denali", 6190}},
	{"INSERT INTO mountain (id, name, height) VALUES (?, ?, ?)", []any{2, "Everest", 8848}},
	{"INSERT INTO mountain (id, name, height) VALUES (?, ?, ?)", []any{3, "K2", 8611}},

	{"INSERT INTO forest (id, name, area) VALUES (?, ?, ?)", []any{1, "Amazon rainforest", 5500000}},
	{"INSERT INTO forest (id, name, area) VALUES (?, ?, ?)", []any{2, "Tongass", 68062}},

	{
		"INSERT INTO disaster (id, event, date, source, comment, country_id) VALUES (?, ?, ?, ?, ?, ?)",
		[]any{1, "Hurricane Katrina", "2005-08-29T11:10:00Z", "NOAA", "Category 5 at peak", 1},
	},
	{
		"INSERT INTO disaster (id, event, date, source, comment, country_id) VALUES (?, ?, ?, ?, ?, ?)",
		[]any{2, "Sichuan earthquake", "2008-05-12T06:28:00Z", "USGS", "Magnitude 7.9", 4},
	},
	{
		"INSERT INTO disaster (id, event, date, source, comment, country_id) VALUES (?, ?, ?, ?, ?, ?)",
		[]any{3, "North India floods", "2013-06-14T00:00:00Z", "IMD", "Kedarnath valley", 5},
	},

	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{1, 1}},
	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{2, 3}},
	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{3, 4}},
	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{4, 5}},
	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{5, 1}},
	{"INSERT INTO river_country (river_id, country_id) VALUES (?, ?)", []any{5, 2}},

	{"INSERT INTO mountain_country (mountain_id, country_id) VALUES (?, ?)", []any{1, 1}},
	{"INSERT INTO mountain_country (mountain_id, country_id) VALUES (?, ?)", []any{2, 4}},
	{"INSERT INTO mountain_country (mountain_id, country_id) VALUES (?, ?)", []any{2, 5}},
	{"INSERT INTO mountain_country (mountain_id, country_id) VALUES (?, ?)", []any{3, 4}},

	{"INSERT INTO forest_country (forest_id, country_id) VALUES (?, ?)", []any{1, 3}},
	{"INSERT INTO forest_country (forest_id, country_id) VALUES (?, ?)", []any{2, 1}},
}
