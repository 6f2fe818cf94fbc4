package engine

// helpText answers /help.
const helpText = "" +
	"Dengar, ini bukan ilmu roket. Begini cara kerja gue:\n" +
	"\n" +
	"**1. Ngobrol Biasa:**\n" +
	"Ketik apa aja yang ada di otak lo. Gue bakal jawab... mungkin dengan sarkasme. Gue bakal inget obrolan kita sebelumnya, jadi lo bisa nanya \"lanjutkan\" atau \"jelasin lagi\".\n" +
	"\n" +
	"**2. Bikin Gambar:**\n" +
	"*   Gunakan perintah `/gambar` diikuti deskripsi. Saat Anda mengetik `/gambar`, pilihan gaya akan muncul untuk Anda klik.\n" +
	"*   **Contoh:** `/gambar naga siberpunk di atas kota neon`\n" +
	"*   Anda bisa tambahin flag lain buat ngatur hasil: `--aspect 16:9`, `--width 1024`, `--height 768`, atau `--quality 4`. Flag `--style` akan ditambahkan secara otomatis saat Anda memilih gaya dari daftar.\n" +
	"\n" +
	"**3. Bikin Wallpaper:**\n" +
	"*   Gunakan perintah `/wallpaper` diikuti deskripsi.\n" +
	"*   **Contoh:** `/wallpaper hutan fantasi saat senja`\n" +
	"*   Gunakan flag `--aspect` untuk mengatur orientasi. Defaultnya adalah `16:9` (desktop). Gunakan `--aspect 9:16` untuk wallpaper ponsel.\n" +
	"\n" +
	"**4. Bikin Komik Berseri:**\n" +
	"*   Gunakan perintah `/komik` diikuti ide cerita awal lo.\n" +
	"*   **Contoh:** `/komik detektif kucing di kota hujan mencari petunjuk`\n" +
	"*   Kirim aja, ntar gue bakal balik nanya gaya visual yang lo mau. Gak usah pusing mikirin flag.\n" +
	"*   Setelah panel pertama jadi, tinggal ketik `lanjutkan` atau `next` buat nerusin ceritanya.\n" +
	"*   Kalau lo tipe yang gak sabaran, bisa juga langsung pake flag `--style` di awal. Contoh: `--style comicbook`.\n" +
	"\n" +
	"**5. Bikin Gambar Placeholder:**\n" +
	"*   Gunakan perintah `/placeholder` diikuti judul. Bisa juga kosong untuk latar belakang abstrak.\n" +
	"*   **Contoh:** `/placeholder Panduan Komputasi Kuantum`\n" +
	"*   Perintah ini sangat canggih. Gunakan flag untuk kustomisasi penuh:\n" +
	"    *   `--subtitle \"Teks subjudul di sini\"`: Menambahkan subjudul. Pakai tanda kutip jika ada spasi.\n" +
	"    *   `--theme <tema>`: Mengubah palet warna. Pilihan: `dark` (default), `light`, `vibrant`, `corporate`, `nature`.\n" +
	"    *   `--style <gaya>`: Mengubah gaya visual. Pilihan: `geometric` (default), `organic`, `futuristic`, `retro`, `minimalist`.\n" +
	"    *   `--icon <ikon>`: Menambahkan ikon abstrak terkait topik (misal: `--icon code`).\n" +
	"    *   `--layout <posisi>`: Mengatur posisi teks. Pilihan: `center` (default), `left`.\n" +
	"    *   `--icon-position <posisi>`: Mengatur posisi ikon. Pilihan: `left` (default), `right`, `top`, `bottom`.\n" +
	"\n" +
	"**6. Bikin Video:**\n" +
	"*   Gunakan perintah `/video` diikuti deskripsi.\n" +
	"*   **Penting:** Fitur ini butuh Kunci API khusus. Dialog akan muncul otomatis saat pertama kali digunakan.\n" +
	"*   **Contoh:** `/video mobil terbang di kota masa depan`\n" +
	"*   Kualitas video default adalah 'high'. Gunakan flag `--quality fast` untuk hasil yang lebih cepat. Flag lain: `--aspect 9:16`, `--res 1080p`.\n" +
	"\n" +
	"**7. Deskripsi Audio Gambar:**\n" +
	"*   Gunakan perintah `/dengarkan` dan lampirkan sebuah gambar.\n" +
	"*   Gue bakal jelasin isi gambarnya lewat suara. Berguna kalau lo males liat.\n" +
	"\n" +
	"**8. Analisis & Modifikasi File:**\n" +
	"*   Klik ikon **penjepit kertas** buat unggah file (gambar atau PDF).\n" +
	"*   **Unggah gambar:** Kasih perintah buat ngubahnya, atau biarin kosong biar gue yang berimajinasi.\n" +
	"*   **Unggah PDF:** Gue bakal ringkasin isinya. Gak usah repot-repot baca.\n" +
	"\n" +
	"Udah ngerti? Sekarang jangan ganggu gue lagi kecuali ada yang penting."
