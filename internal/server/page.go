package server

import "html/template"

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Aviation accident map</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<link rel="stylesheet" href="https://unpkg.com/leaflet.markercluster@1.5.3/dist/MarkerCluster.css">
<link rel="stylesheet" href="https://unpkg.com/leaflet.markercluster@1.5.3/dist/MarkerCluster.Default.css">
<style>
  html, body { height: 100%; margin: 0; font-family: sans-serif; }
  #map { position: absolute; top: 48px; bottom: 0; left: 0; right: 0; }
  #search { height: 48px; display: flex; gap: 8px; align-items: center; padding: 0 8px; background: #1f2933; color: #fff; }
  #search input, #search select { padding: 4px; }
  #spinner { display: none; margin-left: auto; }
  #spinner.active { display: inline; }
  .popup-content p { margin: 2px 0; }
</style>
</head>
<body>
<form id="search">
  <input id="minFatalities" name="minFatalities" type="number" min="0" placeholder="Min fatalities">
  <select id="operator" name="operator"><option value="">Any operator</option></select>
  <input id="aircraftType" name="aircraftType" placeholder="Aircraft type">
  <select id="category" name="category"><option value="">Any category</option></select>
  <button type="submit">Search</button>
  <button type="button" id="reset">Reset zoom</button>
  <span id="spinner">Loading...</span>
</form>
<div id="map"></div>
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<script src="https://unpkg.com/leaflet.markercluster@1.5.3/dist/leaflet.markercluster.js"></script>
<script>
const settings = {{ .Settings }};

const map = L.map('map', {
  center: settings.center,
  zoom: settings.zoom,
  minZoom: settings.minZoom,
  maxBounds: settings.maxBounds,
  maxBoundsViscosity: settings.maxBoundsViscosity,
});
L.tileLayer(settings.tileUrl, {
  maxZoom: settings.maxZoom,
  attribution: settings.attribution,
}).addTo(map);

const icon = L.icon(settings.icon);
const markers = L.markerClusterGroup();
map.addLayer(markers);

function render(collection) {
  markers.clearLayers();
  for (const feature of collection.features) {
    const [lon, lat] = feature.geometry.coordinates;
    markers.addLayer(L.marker([lat, lon], { icon: icon, title: feature.properties.title })
      .bindPopup(feature.properties.popup));
  }
}

function resetZoom() {
  map.setView(settings.center, settings.zoom);
}

async function fillSelect(id, path) {
  const resp = await fetch(path);
  if (!resp.ok) return;
  const select = document.getElementById(id);
  for (const value of await resp.json()) {
    const option = document.createElement('option');
    option.value = value;
    option.textContent = value;
    select.appendChild(option);
  }
}

document.getElementById('search').addEventListener('submit', async (e) => {
  e.preventDefault();
  const form = new FormData(e.target);
  const criteria = {};
  for (const [key, value] of form.entries()) {
    if (value === '') continue;
    criteria[key] = key === 'minFatalities' ? parseInt(value, 10) : value;
  }
  await fetch('api/search', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify(criteria),
  });
});

document.getElementById('reset').addEventListener('click', () => {
  fetch('api/reset-zoom', { method: 'POST' });
});

const events = new EventSource('api/stream');
events.addEventListener('accidents', (e) => render(JSON.parse(e.data)));
events.addEventListener('reset-zoom', resetZoom);
events.addEventListener('loading', (e) => {
  document.getElementById('spinner').classList.toggle('active', JSON.parse(e.data).loading);
});

fillSelect('operator', 'api/operators');
fillSelect('category', 'api/categories');
</script>
</body>
</html>
`
