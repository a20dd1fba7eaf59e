package parldok

// listPage is a trimmed copy of a real result page.
const listPage = `<!DOCTYPE html>
<html lang="de">
<head><meta charset="utf-8"><title>ParlDok</title></head>
<body>
<form action="/parldok/formalkriterien" method="post">
  <input type="hidden" name="AFHTOKEN" value="tok-123">
</form>
<div class="pd_resultcount">
  Dokumente 1 - 3
  von 45
</div>
<table id="parldokresult">
  <thead><tr><th id="result-nummer">Nr.</th><th id="result-typ">Typ</th><th id="result-datum">Datum</th></tr></thead>
  <tbody>
    <tr><td class="title" colspan="3"><a href="/parldok/dokument/84539/haushalt.pdf">  Haushaltsplan 2023/2024  </a></td></tr>
    <tr>
      <td headers="result-nummer">22/13724</td>
      <td headers="result-typ">Drucksache</td>
      <td headers="result-datum">05.12.2023</td>
    </tr>
    <tr><td class="title" colspan="3">Schriftliche Kleine Anfrage ohne Link</td></tr>
    <tr>
      <td headers="result-typ">Schriftliche Kleine Anfrage</td>
      <td headers="result-datum">12.12.2023</td>
    </tr>
    <tr><td class="title" colspan="3"><a href="">Plenarprotokoll</a></td></tr>
    <tr>
      <td headers="result-nummer">22/70</td>
      <td headers="result-typ">Plenarprotokoll</td>
      <td headers="result-datum">in Vorbereitung</td>
    </tr>
  </tbody>
</table>
</body>
</html>`
